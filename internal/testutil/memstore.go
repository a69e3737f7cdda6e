// Package testutil provides in-memory repositories for service and HTTP tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"perito.app/casetrack/internal/entity"
	casoRepo "perito.app/casetrack/internal/modules/caso/repository"
	evidenciaRepo "perito.app/casetrack/internal/modules/evidencia/repository"
	userRepo "perito.app/casetrack/internal/modules/user/repository"
	"perito.app/casetrack/pkg/apperror"
)

// tick guarantees strictly increasing timestamps so newest-first ordering
// is deterministic in tests.
type tick struct {
	mu   sync.Mutex
	last time.Time
}

func (t *tick) now() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := time.Now()
	if !n.After(t.last) {
		n = t.last.Add(time.Microsecond)
	}
	t.last = n
	return n
}

var clock tick

type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]entity.User
}

var _ userRepo.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]entity.User)}
}

func (s *UserStore) uniqueViolation(u *entity.User) error {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if other.Username == u.Username {
			return &apperror.DuplicateKeyError{Field: "username"}
		}
		if other.Email == u.Email {
			return &apperror.DuplicateKeyError{Field: "email"}
		}
	}
	return nil
}

func (s *UserStore) Create(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := s.uniqueViolation(user); err != nil {
		return err
	}
	now := clock.now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) find(match func(entity.User) bool) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	return s.find(func(u entity.User) bool { return u.Username == username })
}

func (s *UserStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*entity.User, error) {
	email = strings.ToLower(email)
	return s.find(func(u entity.User) bool { return u.Username == username || u.Email == email })
}

func (s *UserStore) FindAll(_ context.Context, filter userRepo.UserFilter) ([]*entity.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []*entity.User
	for _, u := range s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if search != "" {
			phone := ""
			if u.Phone != nil {
				phone = *u.Phone
			}
			hay := strings.ToLower(u.Username + "\x00" + u.Email + "\x00" + phone)
			if !strings.Contains(hay, search) {
				continue
			}
		}
		found := u
		matched = append(matched, &found)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less bool
		switch filter.Sort {
		case "email":
			less = a.Email < b.Email
		case "role":
			less = a.Role < b.Role
		case "createdAt":
			less = a.CreatedAt.Before(b.CreatedAt)
		default:
			less = a.Username < b.Username
		}
		if filter.Desc {
			return !less
		}
		return less
	})

	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (s *UserStore) FindUsernames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			names[id] = u.Username
		}
	}
	return names, nil
}

func (s *UserStore) Update(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return apperror.ErrNotFound
	}
	if err := s.uniqueViolation(user); err != nil {
		return err
	}
	user.UpdatedAt = clock.now()
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return apperror.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type CaseStore struct {
	mu    sync.RWMutex
	casos map[uuid.UUID]entity.Case
}

var _ casoRepo.CaseRepository = (*CaseStore)(nil)

func NewCaseStore() *CaseStore {
	return &CaseStore{casos: make(map[uuid.UUID]entity.Case)}
}

func cloneCase(c entity.Case) *entity.Case {
	c.Historico = append([]entity.HistoryEntry{}, c.Historico...)
	return &c
}

func (s *CaseStore) Create(_ context.Context, caso *entity.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caso.ID == uuid.Nil {
		caso.ID = uuid.New()
	}
	for _, other := range s.casos {
		if other.NumeroCaso == caso.NumeroCaso {
			return &apperror.DuplicateKeyError{Field: "numeroCaso"}
		}
	}
	if caso.Historico == nil {
		caso.Historico = []entity.HistoryEntry{}
	}
	now := clock.now()
	caso.CreatedAt, caso.UpdatedAt = now, now
	s.casos[caso.ID] = *cloneCase(*caso)
	return nil
}

func (s *CaseStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.casos[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return cloneCase(c), nil
}

func (s *CaseStore) FindAll(_ context.Context, filter casoRepo.CaseFilter) ([]*entity.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allowed map[uuid.UUID]bool
	if filter.IDs != nil {
		allowed = make(map[uuid.UUID]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			allowed[id] = true
		}
	}
	search := strings.ToLower(filter.Search)

	out := []*entity.Case{}
	for _, c := range s.casos {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.ResponsavelID != nil && c.ResponsavelID != *filter.ResponsavelID {
			continue
		}
		if allowed != nil {
			if !allowed[c.ID] {
				continue
			}
		} else if search != "" {
			hay := strings.ToLower(c.NumeroCaso + "\x00" + c.Titulo + "\x00" + c.Contexto.Descricao)
			if !strings.Contains(hay, search) {
				continue
			}
		}
		out = append(out, cloneCase(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *CaseStore) Update(_ context.Context, caso *entity.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.casos[caso.ID]
	if !ok {
		return apperror.ErrNotFound
	}
	for id, other := range s.casos {
		if id != caso.ID && other.NumeroCaso == caso.NumeroCaso {
			return &apperror.DuplicateKeyError{Field: "numeroCaso"}
		}
	}
	updated := cloneCase(*caso)
	updated.Historico = stored.Historico
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = clock.now()
	s.casos[caso.ID] = *updated
	caso.UpdatedAt = updated.UpdatedAt
	return nil
}

func (s *CaseStore) AppendHistory(_ context.Context, id uuid.UUID, entries ...entity.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.casos[id]
	if !ok {
		return apperror.ErrNotFound
	}
	c.Historico = append(append([]entity.HistoryEntry{}, c.Historico...), entries...)
	c.UpdatedAt = clock.now()
	s.casos[id] = c
	return nil
}

func (s *CaseStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.casos[id]; !ok {
		return apperror.ErrNotFound
	}
	delete(s.casos, id)
	return nil
}

type EvidenceStore struct {
	mu        sync.RWMutex
	evidences map[uuid.UUID]entity.Evidence
}

var _ evidenciaRepo.EvidenceRepository = (*EvidenceStore)(nil)

func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{evidences: make(map[uuid.UUID]entity.Evidence)}
}

func cloneEvidence(e entity.Evidence, withData bool) *entity.Evidence {
	if e.Arquivo != nil {
		file := *e.Arquivo
		if withData {
			file.Data = append([]byte(nil), file.Data...)
		} else {
			file.Data = nil
		}
		e.Arquivo = &file
	}
	return &e
}

func (s *EvidenceStore) Create(_ context.Context, evidence *entity.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if evidence.ID == uuid.Nil {
		evidence.ID = uuid.New()
	}
	now := clock.now()
	if evidence.DataColeta.IsZero() {
		evidence.DataColeta = now
	}
	evidence.CreatedAt, evidence.UpdatedAt = now, now
	s.evidences[evidence.ID] = *cloneEvidence(*evidence, true)
	return nil
}

func (s *EvidenceStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.evidences[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return cloneEvidence(e, true), nil
}

func (s *EvidenceStore) FindByCaseID(_ context.Context, casoID uuid.UUID) ([]*entity.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*entity.Evidence{}
	for _, e := range s.evidences {
		if e.CasoID == casoID {
			out = append(out, cloneEvidence(e, false))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *EvidenceStore) Update(_ context.Context, evidence *entity.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.evidences[evidence.ID]
	if !ok {
		return apperror.ErrNotFound
	}
	evidence.CreatedAt = stored.CreatedAt
	evidence.UpdatedAt = clock.now()
	s.evidences[evidence.ID] = *cloneEvidence(*evidence, true)
	return nil
}

func (s *EvidenceStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.evidences[id]; !ok {
		return apperror.ErrNotFound
	}
	delete(s.evidences, id)
	return nil
}

// Count reports how many evidence rows reference casoID.
func (s *EvidenceStore) Count(casoID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.evidences {
		if e.CasoID == casoID {
			n++
		}
	}
	return n
}
