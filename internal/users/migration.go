package users

import "github.com/RK2301/classify-backend/internal/types"

// Migration lists the tables the users service owns: the authoritative user
// table plus the course, enrollment and assignment projections. The cascade
// constraints keep the projections consistent when a CourseDeleted event and
// its row deletions arrive.
func Migration() ([]interface{}, []string) {
	models := []interface{}{
		&types.User{},
		&types.CourseRef{},
		&types.StudentCourse{},
		&types.TeacherCourse{},
	}
	constraints := []string{
		`ALTER TABLE "student_course" DROP CONSTRAINT IF EXISTS "fk_student_course_course_id"`,
		`ALTER TABLE "student_course" ADD CONSTRAINT "fk_student_course_course_id"
			FOREIGN KEY ("course_id") REFERENCES "course_ref"("id") ON DELETE CASCADE`,
		`ALTER TABLE "teacher_course" DROP CONSTRAINT IF EXISTS "fk_teacher_course_course_id"`,
		`ALTER TABLE "teacher_course" ADD CONSTRAINT "fk_teacher_course_course_id"
			FOREIGN KEY ("course_id") REFERENCES "course_ref"("id") ON DELETE CASCADE`,
	}
	return models, constraints
}
