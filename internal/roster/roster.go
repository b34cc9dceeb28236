// Package roster loads the student roster (students.json).
//
// Unlike the reference tables the roster is validated strictly: a record
// missing a required field halts the load. Students decoded before the
// failing record are returned together with the error, so a failure at
// entry #i leaves exactly i students.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/classcommute/internal/common/logger"
	"github.com/classcommute/pkg/commute/models"
)

// FileName is the roster file inside the data directory.
const FileName = "students.json"

// ErrorKind separates unreadable files from malformed content.
type ErrorKind int

const (
	KindIO ErrorKind = iota + 1
	KindFormat
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFormat:
		return "format"
	default:
		return "unknown"
	}
}

// LoadError carries the message shown to the student.
type LoadError struct {
	Kind ErrorKind
	// Entry and Class are zero-based indices of the offending record, -1 when
	// the failure is not tied to a record.
	Entry   int
	Class   int
	Message string
	Err     error
}

func (e *LoadError) Error() string { return e.Message }
func (e *LoadError) Unwrap() error { return e.Err }

// studentRecord uses pointers so "required" means the key is present; an
// empty string still counts as present. Values are read leniently: a
// wrongly typed scalar is "" and a non-array classes value is empty.
type studentRecord struct {
	Name    *string           `json:"name" validate:"required"`
	Email   *string           `json:"email" validate:"required"`
	CunyID  *string           `json:"cuny_id" validate:"required"`
	Classes []json.RawMessage `json:"classes"`
}

type classRecord struct {
	ClassName *string `json:"class_name" validate:"required"`
	ClassTime *string `json:"class_time" validate:"required"`
	Professor *string `json:"professor" validate:"required"`
	ProfEmail *string `json:"prof_email" validate:"required"`
}

type Loader struct {
	validate *validator.Validate
	logger   logger.Logger
}

func NewLoader(logger logger.Logger) *Loader {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Loader{validate: v, logger: logger}
}

// LoadFile reads the roster from path.
func (l *Loader) LoadFile(path string) ([]models.Student, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, l.fail(&LoadError{
			Kind: KindIO, Entry: -1, Class: -1,
			Message: "Could not open " + FileName,
			Err:     err,
		})
	}
	defer f.Close()

	return l.Load(f)
}

// Load decodes a roster document.
func (l *Loader) Load(r io.Reader) ([]models.Student, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, l.fail(&LoadError{
			Kind: KindIO, Entry: -1, Class: -1,
			Message: "Could not open " + FileName,
			Err:     err,
		})
	}

	var root interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, l.fail(&LoadError{
			Kind: KindFormat, Entry: -1, Class: -1,
			Message: fmt.Sprintf("JSON parsing error in %s: %v", FileName, err),
			Err:     err,
		})
	}
	if _, ok := root.([]interface{}); !ok {
		return nil, l.fail(&LoadError{
			Kind: KindFormat, Entry: -1, Class: -1,
			Message: fmt.Sprintf("The root of %s must be a JSON array.", FileName),
		})
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, l.fail(&LoadError{
			Kind: KindFormat, Entry: -1, Class: -1,
			Message: fmt.Sprintf("JSON parsing error in %s: %v", FileName, err),
			Err:     err,
		})
	}

	students := make([]models.Student, 0, len(entries))
	for i, entry := range entries {
		st, err := l.decodeStudent(i, entry)
		if err != nil {
			return students, l.fail(err)
		}
		students = append(students, st)
	}

	l.logger.Info("Loaded students", "count", len(students))
	return students, nil
}

func (l *Loader) decodeStudent(i int, entry json.RawMessage) (models.Student, *LoadError) {
	fields := decodeObject(entry)
	rec := studentRecord{
		Name:    optString(fields, "name"),
		Email:   optString(fields, "email"),
		CunyID:  optString(fields, "cuny_id"),
		Classes: optArray(fields, "classes"),
	}
	if err := l.validate.Struct(rec); err != nil {
		return models.Student{}, &LoadError{
			Kind: KindFormat, Entry: i, Class: -1,
			Message: fmt.Sprintf("Missing required student fields in entry #%d (%s)", i, missingFields(err)),
			Err:     err,
		}
	}

	st := models.Student{
		Name:    *rec.Name,
		Email:   *rec.Email,
		ID:      *rec.CunyID,
		Classes: make([]models.ClassInfo, 0, len(rec.Classes)),
	}

	for j, raw := range rec.Classes {
		classFields := decodeObject(raw)
		c := classRecord{
			ClassName: optString(classFields, "class_name"),
			ClassTime: optString(classFields, "class_time"),
			Professor: optString(classFields, "professor"),
			ProfEmail: optString(classFields, "prof_email"),
		}
		if err := l.validate.Struct(c); err != nil {
			return models.Student{}, &LoadError{
				Kind: KindFormat, Entry: i, Class: j,
				Message: fmt.Sprintf("Missing class fields for student #%d, class #%d (%s)", i, j, missingFields(err)),
				Err:     err,
			}
		}
		st.Classes = append(st.Classes, models.ClassInfo{
			Name:           *c.ClassName,
			Time:           *c.ClassTime,
			Professor:      *c.Professor,
			ProfessorEmail: *c.ProfEmail,
		})
	}

	return st, nil
}

func (l *Loader) fail(err *LoadError) error {
	l.logger.Error("Student load error", "kind", err.Kind.String(), "entry", err.Entry, "class", err.Class, "error", err.Message)
	return err
}

// decodeObject returns the members of a JSON object. Anything else reads as
// an object with no members, so it fails validation.
func decodeObject(raw json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

// optString is nil when key is absent or null. A value that is not a string
// is present but reads as "".
func optString(fields map[string]json.RawMessage, key string) *string {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = ""
	}
	return &s
}

// optArray returns the elements of an array value; anything else is empty.
func optArray(fields map[string]json.RawMessage, key string) []json.RawMessage {
	var items []json.RawMessage
	if raw, ok := fields[key]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
	}
	return items
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func missingFields(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	return strings.Join(names, ", ")
}

// FindByID returns the first student whose ID equals id exactly.
func FindByID(students []models.Student, id string) (models.Student, bool) {
	for _, s := range students {
		if s.ID == id {
			return s, true
		}
	}
	return models.Student{}, false
}
