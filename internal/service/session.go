package service

import (
	"context"
	"sync"
	"time"

	"github.com/abdullah-koca/lunora/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Шаги checkout — как в витрине: адрес, проверка, оплата, успех.
type Step int

const (
	StepAddress Step = 1
	StepReview  Step = 2
	StepPayment Step = 3
	StepSuccess Step = 4
)

// PaymentState — жизненный цикл платежа внутри сессии.
type PaymentState string

const (
	PaymentIdle     PaymentState = "idle"
	PaymentAwaiting PaymentState = "awaiting"
	PaymentSuccess  PaymentState = "success"
	PaymentFailed   PaymentState = "failed"
)

// Session — эфемерное состояние одного checkout. Живёт только в памяти:
// единственное разделяемое с callback-процессом состояние — строка заказа,
// синхронизация — идемпотентный Finalize журнала.
type Session struct {
	mu sync.Mutex

	ID   uuid.UUID
	User Identity

	Step    Step
	Address *models.Address

	OrderNumber string
	Token       string // короткоживущий, сбрасывается при терминальном статусе
	IframeURL   string
	Payment     PaymentState
	LastError   string

	touchedAt time.Time
}

// View — снимок сессии для транспорта.
type View struct {
	ID          uuid.UUID       `json:"id"`
	Step        Step            `json:"step"`
	Payment     PaymentState    `json:"payment_status"`
	OrderNumber string          `json:"order_number,omitempty"`
	IframeURL   string          `json:"iframe_url,omitempty"`
	Address     *models.Address `json:"address,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
}

func (s *Session) view() View {
	return View{
		ID:          s.ID,
		Step:        s.Step,
		Payment:     s.Payment,
		OrderNumber: s.OrderNumber,
		IframeURL:   s.IframeURL,
		Address:     s.Address,
		LastError:   s.LastError,
	}
}

// SessionStore хранит активные сессии и выметает брошенные.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration, log *zap.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

func (st *SessionStore) Create(user Identity) *Session {
	s := &Session{
		ID:        uuid.New(),
		User:      user,
		Step:      StepAddress,
		Payment:   PaymentIdle,
		touchedAt: st.now(),
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

func (st *SessionStore) Get(id uuid.UUID) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.mu.Lock()
		s.touchedAt = st.now()
		s.mu.Unlock()
	}
	return s, ok
}

func (st *SessionStore) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// StartJanitor запускает фоновую чистку брошенных сессий каждые 5 минут.
func (st *SessionStore) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				st.sweep()
			case <-ctx.Done():
				st.log.Info("session janitor stopped")
				return
			}
		}
	}()
}

func (st *SessionStore) sweep() {
	cutoff := st.now().Add(-st.ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		stale := s.touchedAt.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.log.Info("swept stale checkout sessions", zap.Int("removed", removed))
	}
}
