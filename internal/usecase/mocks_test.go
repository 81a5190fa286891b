package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/repository"
)

// Mock repositories shared by the usecase tests.

type roleRepoMock struct {
	roles     map[string]domain.Role
	createErr error
	updateErr error
	deleteErr error
	getErr    error
}

func newRoleRepoMock(roles ...domain.Role) *roleRepoMock {
	m := &roleRepoMock{roles: make(map[string]domain.Role)}
	for _, role := range roles {
		m.roles[role.ID] = role
	}
	return m
}

func (m *roleRepoMock) Create(_ context.Context, role domain.Role) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.roles {
		if existing.OrganizationID == role.OrganizationID && strings.EqualFold(existing.Name, role.Name) {
			return repository.ErrDuplicate
		}
	}
	m.roles[role.ID] = role
	return nil
}

func (m *roleRepoMock) GetByID(_ context.Context, id string) (*domain.Role, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if role, ok := m.roles[id]; ok {
		return &role, nil
	}
	return nil, repository.ErrNotFound
}

func (m *roleRepoMock) GetByName(_ context.Context, organizationID, name string) (*domain.Role, error) {
	for _, role := range m.roles {
		if role.OrganizationID == organizationID && strings.EqualFold(role.Name, name) {
			return &role, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *roleRepoMock) ListByOrganization(_ context.Context, organizationID string) ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(m.roles))
	for _, role := range m.roles {
		if role.OrganizationID == organizationID {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (m *roleRepoMock) Update(_ context.Context, role domain.Role) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.roles[role.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range m.roles {
		if existing.ID != role.ID && existing.OrganizationID == role.OrganizationID && strings.EqualFold(existing.Name, role.Name) {
			return repository.ErrDuplicate
		}
	}
	m.roles[role.ID] = role
	return nil
}

func (m *roleRepoMock) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

type userRepoMock struct {
	users      map[string]domain.User
	assigned   map[string]bool
	setRoleErr error
}

func newUserRepoMock(users ...domain.User) *userRepoMock {
	m := &userRepoMock{users: make(map[string]domain.User), assigned: make(map[string]bool)}
	for _, user := range users {
		m.users[user.ID] = user
		if user.RoleID != nil {
			m.assigned[*user.RoleID] = true
		}
	}
	return m
}

func (m *userRepoMock) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		return &user, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) SetRole(_ context.Context, userID string, roleID *string, updatedAt time.Time) (*domain.User, error) {
	if m.setRoleErr != nil {
		return nil, m.setRoleErr
	}
	user, ok := m.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user.RoleID = roleID
	user.UpdatedAt = updatedAt
	m.users[userID] = user
	return &user, nil
}

func (m *userRepoMock) AnyWithRole(_ context.Context, roleID string) (bool, error) {
	for _, user := range m.users {
		if user.RoleID != nil && *user.RoleID == roleID {
			return true, nil
		}
	}
	return m.assigned[roleID], nil
}

type eventRepoMock struct {
	events    []domain.LoadEvent
	insertErr error
	queryErr  error
	lastQuery port.EventQuery
}

func (m *eventRepoMock) Insert(_ context.Context, event domain.LoadEvent) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.events = append(m.events, event)
	return nil
}

func (m *eventRepoMock) QueryByLoad(_ context.Context, query port.EventQuery) ([]domain.LoadEvent, error) {
	m.lastQuery = query
	if m.queryErr != nil {
		return nil, m.queryErr
	}

	matched := make([]domain.LoadEvent, 0, len(m.events))
	for _, event := range m.events {
		if event.LoadID != query.LoadID {
			continue
		}
		if query.EventType != "" && event.EventType != query.EventType {
			continue
		}
		if query.From != nil && event.OccurredAt.Before(*query.From) {
			continue
		}
		if query.To != nil && event.OccurredAt.After(*query.To) {
			continue
		}
		if query.Before != nil && !event.OccurredAt.Before(*query.Before) {
			continue
		}
		matched = append(matched, event)
	}

	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if matched[j].OccurredAt.After(matched[i].OccurredAt) {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}

	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}

	return matched, nil
}

type historyRepoMock struct {
	records     []domain.HistoryRecord
	insertErr   error
	searchErr   error
	archiveErr  error
	lastFilter  port.HistoryFilter
	lastCutoff  time.Time
	searchCalls int
}

func (m *historyRepoMock) Insert(_ context.Context, record domain.HistoryRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *historyRepoMock) Search(_ context.Context, filter port.HistoryFilter) ([]domain.HistoryRecord, error) {
	m.searchCalls++
	m.lastFilter = filter
	if m.searchErr != nil {
		return nil, m.searchErr
	}

	matched := make([]domain.HistoryRecord, 0, len(m.records))
	for _, record := range m.records {
		if record.IsArchived && !filter.IncludeArchived {
			continue
		}
		if filter.SearchTerm != "" && !strings.Contains(strings.ToLower(record.Content), strings.ToLower(filter.SearchTerm)) {
			continue
		}
		if len(filter.SubjectIDs) > 0 && !containsString(filter.SubjectIDs, record.SubjectID) {
			continue
		}
		if len(filter.ActorIDs) > 0 && !containsString(filter.ActorIDs, record.ActorID) {
			continue
		}
		if len(filter.ActionTypes) > 0 && !containsString(filter.ActionTypes, record.ActionType) {
			continue
		}
		if filter.From != nil && record.OccurredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && record.OccurredAt.After(*filter.To) {
			continue
		}
		matched = append(matched, record)
	}

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func (m *historyRepoMock) ArchiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.lastCutoff = cutoff
	if m.archiveErr != nil {
		return 0, m.archiveErr
	}

	var flipped int64
	for i, record := range m.records {
		if !record.IsArchived && record.OccurredAt.Before(cutoff) {
			m.records[i].IsArchived = true
			flipped++
		}
	}
	return flipped, nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

type publisherMock struct {
	published []domain.LoadEvent
	err       error
}

func (m *publisherMock) PublishLoadEventRecorded(_ context.Context, event domain.LoadEvent) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, event)
	return nil
}

type sinkMock struct {
	sent []domain.NotificationRequest
	err  error
}

func (m *sinkMock) Send(_ context.Context, request domain.NotificationRequest) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, request)
	return nil
}

type catalogCacheMock struct {
	snapshot      []domain.Permission
	snapshotErr   error
	storeErr      error
	stored        [][]domain.Permission
	invalidations int
}

func (m *catalogCacheMock) Snapshot(_ context.Context) ([]domain.Permission, error) {
	if m.snapshotErr != nil {
		return nil, m.snapshotErr
	}
	return m.snapshot, nil
}

func (m *catalogCacheMock) Store(_ context.Context, permissions []domain.Permission) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.stored = append(m.stored, permissions)
	return nil
}

func (m *catalogCacheMock) Invalidate(_ context.Context) error {
	m.invalidations++
	return nil
}

func strPtr(s string) *string {
	return &s
}

func legacyPtr(r domain.LegacyRole) *domain.LegacyRole {
	return &r
}
