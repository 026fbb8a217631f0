package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Exchange names one event type. The set is closed: payload shapes are fixed
// per exchange and there is no schema versioning.
type Exchange string

const (
	ExchangeCourseCreated     Exchange = "CourseCreated"
	ExchangeCourseUpdated     Exchange = "CourseUpdated"
	ExchangeCourseDeleted     Exchange = "CourseDeleted"
	ExchangeLessonCreated     Exchange = "LessonCreated"
	ExchangeLessonUpdated     Exchange = "LessonUpdated"
	ExchangeLessonDeleted     Exchange = "LessonDeleted"
	ExchangeSubjectCreated    Exchange = "SubjectCreated"
	ExchangeSubjectUpdated    Exchange = "SubjectUpdated"
	ExchangeSubjectDeleted    Exchange = "SubjectDeleted"
	ExchangeStudentEnrolled   Exchange = "StudentEnrolled"
	ExchangeStudentWithdrawal Exchange = "StudentWithdrawal"
	ExchangeTeacherAssigned   Exchange = "TeacherAssigned"
	ExchangeTeacherUnassigned Exchange = "TeacherUnassigned"
	ExchangeUserCreated       Exchange = "UserCreated"
	ExchangeUserUpdated       Exchange = "UserUpdated"
	ExchangeUserDeleted       Exchange = "UserDeleted"
)

var exchanges = map[Exchange]struct{}{
	ExchangeCourseCreated:     {},
	ExchangeCourseUpdated:     {},
	ExchangeCourseDeleted:     {},
	ExchangeLessonCreated:     {},
	ExchangeLessonUpdated:     {},
	ExchangeLessonDeleted:     {},
	ExchangeSubjectCreated:    {},
	ExchangeSubjectUpdated:    {},
	ExchangeSubjectDeleted:    {},
	ExchangeStudentEnrolled:   {},
	ExchangeStudentWithdrawal: {},
	ExchangeTeacherAssigned:   {},
	ExchangeTeacherUnassigned: {},
	ExchangeUserCreated:       {},
	ExchangeUserUpdated:       {},
	ExchangeUserDeleted:       {},
}

func (e Exchange) Valid() bool {
	_, ok := exchanges[e]
	return ok
}

// Envelope is the wire unit: the exchange tag plus the serialized full-state
// snapshot. It is immutable once built; durability past publish is the
// broker's job, the publisher never resends.
type Envelope struct {
	ID          string          `json:"id"`
	Exchange    Exchange        `json:"exchange"`
	Data        json.RawMessage `json:"data"`
	PublishedAt time.Time       `json:"published_at"`
}

func NewEnvelope(exchange Exchange, payload interface{}) (*Envelope, error) {
	if !exchange.Valid() {
		return nil, fmt.Errorf("unknown exchange %q", exchange)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", exchange, err)
	}
	return &Envelope{
		ID:          uuid.NewString(),
		Exchange:    exchange,
		Data:        raw,
		PublishedAt: time.Now().UTC(),
	}, nil
}

// Publisher sends one envelope per call. Callers must only publish state that
// has already durably committed.
type Publisher interface {
	Publish(ctx context.Context, exchange Exchange, payload interface{}) error
}

// Handler processes one delivery. Returning nil acknowledges the delivery,
// returning an error leaves it unacknowledged for broker-side retry. Handlers
// run at-least-once and must treat duplicates as such.
type Handler func(ctx context.Context, data json.RawMessage) error

// Subscriber binds handlers to exchanges before the consumer loop starts.
type Subscriber interface {
	Subscribe(exchange Exchange, h Handler)
}
