package types

// Event payloads. Every payload is the full post-commit snapshot of the
// affected entity, version included, never a delta. CourseCreated is the one
// composite payload: it embeds the lessons and teacher assignments committed
// in the same transaction so downstream services can seed everything in a
// single consume.

type CourseCreatedEvent struct {
	Course   Course           `json:"course"`
	Lessons  []*Lesson        `json:"lessons"`
	Teachers []*TeacherCourse `json:"teachers"`
}

// DeletedEvent carries the id of a removed entity. Dependents go with it via
// the cascade relations on the consuming side.
type DeletedEvent struct {
	ID uint `json:"id"`
}

type UserDeletedEvent struct {
	ID string `json:"id"`
}
