package materials

import "github.com/RK2301/classify-backend/internal/types"

func Migration() ([]interface{}, []string) {
	models := []interface{}{
		&types.CourseRef{},
		&types.Material{},
		&types.MaterialFile{},
	}
	constraints := []string{
		`ALTER TABLE "material" DROP CONSTRAINT IF EXISTS "fk_material_course_id"`,
		`ALTER TABLE "material" ADD CONSTRAINT "fk_material_course_id"
			FOREIGN KEY ("course_id") REFERENCES "course_ref"("id") ON DELETE CASCADE`,
		`ALTER TABLE "material_file" DROP CONSTRAINT IF EXISTS "fk_material_file_material_id"`,
		`ALTER TABLE "material_file" ADD CONSTRAINT "fk_material_file_material_id"
			FOREIGN KEY ("material_id") REFERENCES "material"("id") ON DELETE CASCADE`,
	}
	return models, constraints
}
