package courses

import "github.com/RK2301/classify-backend/internal/types"

// Migration lists the tables the courses service owns: its authoritative
// entities plus the projections its consumers write. The cascade constraints
// are the database backstop for DeleteCourse.
func Migration() ([]interface{}, []string) {
	models := []interface{}{
		&types.Course{},
		&types.Lesson{},
		&types.TeacherCourse{},
		&types.StudentCourse{},
		&types.SubjectRef{},
		&types.UserRef{},
	}
	constraints := []string{
		`ALTER TABLE "lesson" DROP CONSTRAINT IF EXISTS "fk_lesson_course_id"`,
		`ALTER TABLE "lesson" ADD CONSTRAINT "fk_lesson_course_id"
			FOREIGN KEY ("course_id") REFERENCES "course"("id") ON DELETE CASCADE`,
		`ALTER TABLE "teacher_course" DROP CONSTRAINT IF EXISTS "fk_teacher_course_course_id"`,
		`ALTER TABLE "teacher_course" ADD CONSTRAINT "fk_teacher_course_course_id"
			FOREIGN KEY ("course_id") REFERENCES "course"("id") ON DELETE CASCADE`,
		`ALTER TABLE "student_course" DROP CONSTRAINT IF EXISTS "fk_student_course_course_id"`,
		`ALTER TABLE "student_course" ADD CONSTRAINT "fk_student_course_course_id"
			FOREIGN KEY ("course_id") REFERENCES "course"("id") ON DELETE CASCADE`,
	}
	return models, constraints
}
