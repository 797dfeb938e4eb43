// Package schema supplies the two prompt-grounding inputs the SQL
// generator consumes: a textual description of the school-records
// schema and cached example rows per major table.
package schema

// Description is the relational schema description embedded verbatim in
// generation prompts. Column descriptions matter: the generator
// instructs the model to select columns by matching query phrases to
// these descriptions.
const Description = `Tables (every tenant-owned table carries school_id):

schools (sc)
  id            uuid primary key. The tenant identifier.
  name          school display name.

students (s)
  id                       uuid primary key.
  school_id                tenant id, always filter on this.
  class_id                 fk -> classes.id.
  first_name, last_name    student name.
  admission_number         unique admission number.
  roll_number              roll number within the class.
  gender                   'male' or 'female'.
  date_of_birth            date.
  father_phone             father's contact number.
  mother_phone             mother's contact number.
  emergency_contact_phone  emergency contact number.
  address, city            residential address fields.
  is_active                false once the student leaves.
  created_at               admission timestamp.

classes (c)
  id, school_id
  name             class name, e.g. 'Grade 5'.
  section          section letter, e.g. 'A'.
  academic_year_id fk -> academic_years.id.

subjects (sub)
  id, school_id, name, class_id

attendance (a)
  id, school_id
  student_id  fk -> students.id.
  date        attendance date.
  status      'present', 'absent', 'late' or 'leave'.

fees (f)
  id, school_id
  student_id   fk -> students.id.
  fee_type_id  fk -> fee_types.id.
  amount       invoice amount.
  due_date     payment deadline.
  status       'paid' or 'unpaid'.
  paid_at      settlement timestamp, null while unpaid.

fee_types (ft)
  id, school_id, name (e.g. 'Tuition', 'Transport')

exam_results (er)
  id, school_id
  student_id     fk -> students.id.
  exam_type_id   fk -> exam_types.id.
  subject_id     fk -> subjects.id.
  marks_obtained numeric marks scored.
  max_marks      maximum possible marks.
  grade          letter grade.
  exam_date      date the exam was held.

exam_types (et)
  id, school_id, name (e.g. 'Mid Term', 'Final')

staff (st)
  id, school_id
  first_name, last_name
  role          'teacher', 'admin', 'accountant', ...
  department    department name.
  phone, email  contact details.
  joining_date  date of joining.
  is_active     false once employment ends.

academic_years (ay)
  id, school_id, name, start_date, end_date, is_current
`

// MajorTables are the tables sampled for prompt grounding.
var MajorTables = []string{
	"classes", "students", "fee_types", "exam_types", "academic_years", "schools",
}
