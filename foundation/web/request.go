package web

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Azure/go-autorest/autorest/date"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator. Field names in its errors are the
// json names of the struct fields.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})

	return validate
}

// GetParam reads a path parameter. Parse failures are collected and reported
// by ValidParam.
func (c *Context) GetParam(kind reflect.Kind, key string) interface{} {
	value := c.Param(key)

	switch kind {
	case reflect.Int:
		v, err := strconv.Atoi(value)
		if err != nil {
			c.paramErrs = append(c.paramErrs, FieldError{Field: key, Error: "must be an integer"})
			return 0
		}
		return v
	case reflect.Int64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			c.paramErrs = append(c.paramErrs, FieldError{Field: key, Error: "must be an integer"})
			return int64(0)
		}
		return v
	default:
		if value == "" {
			c.paramErrs = append(c.paramErrs, FieldError{Field: key, Error: "required"})
		}
		return value
	}
}

// GetQueryFunc reads an optional query value and returns a pointer to it,
// or nil when the key is absent or invalid.
func (c *Context) GetQueryFunc(kind reflect.Kind, key string) interface{} {
	value, ok := c.GetQuery(key)
	if !ok || value == "" {
		return nil
	}

	switch kind {
	case reflect.Int:
		v, err := strconv.Atoi(value)
		if err != nil {
			c.queryErrs = append(c.queryErrs, FieldError{Field: key, Error: "must be an integer"})
			return nil
		}
		return &v
	case reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			c.queryErrs = append(c.queryErrs, FieldError{Field: key, Error: "must be a number"})
			return nil
		}
		return &v
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			c.queryErrs = append(c.queryErrs, FieldError{Field: key, Error: "must be a boolean"})
			return nil
		}
		return &v
	default:
		return &value
	}
}

// GetDateQuery reads an optional YYYY-MM-DD query value.
func (c *Context) GetDateQuery(key string) *date.Date {
	value, ok := c.GetQuery(key)
	if !ok || value == "" {
		return nil
	}

	d, err := date.ParseDate(value)
	if err != nil {
		c.queryErrs = append(c.queryErrs, FieldError{Field: key, Error: "must be a date (YYYY-MM-DD)"})
		return nil
	}
	return &d
}

// GetMonthQuery reads the year and month query values, defaulting to the
// current month in loc.
func (c *Context) GetMonthQuery(loc *time.Location) (int, time.Month) {
	now := time.Now().In(loc)
	year, month := now.Year(), now.Month()

	if y, ok := c.GetQueryFunc(reflect.Int, "year").(*int); ok {
		if *y < 1 || *y > 9999 {
			c.AddQueryError("year", "must be between 1 and 9999")
		}
		year = *y
	}
	if m, ok := c.GetQueryFunc(reflect.Int, "month").(*int); ok {
		if *m < 1 || *m > 12 {
			c.AddQueryError("month", "must be between 1 and 12")
		}
		month = time.Month(*m)
	}

	return year, month
}

// AddQueryError lets a handler report a query value it parsed itself.
func (c *Context) AddQueryError(key, msg string) {
	c.queryErrs = append(c.queryErrs, FieldError{Field: key, Error: msg})
}

func (c *Context) ValidParam() error {
	if len(c.paramErrs) == 0 {
		return nil
	}
	return NewFieldsError(errors.New("invalid path parameters"), http.StatusBadRequest, c.paramErrs)
}

func (c *Context) ValidQuery() error {
	if len(c.queryErrs) == 0 {
		return nil
	}
	return NewFieldsError(errors.New("invalid query parameters"), http.StatusBadRequest, c.queryErrs)
}

// BindFunc decodes the request body into dest. Names in fields (single or
// comma separated) must be non zero after binding, then validate tags run.
func (c *Context) BindFunc(dest interface{}, fields ...string) error {
	if err := c.ShouldBind(dest); err != nil {
		return NewRequestError(errors.Wrap(err, "binding request"), http.StatusBadRequest)
	}

	if errs := RequiredFields(dest, fields...); len(errs) > 0 {
		return NewFieldsError(errors.New("required fields are missing"), http.StatusBadRequest, errs)
	}

	if errs := ValidateFields(dest); len(errs) > 0 {
		return NewFieldsError(errors.New("validation failed"), http.StatusBadRequest, errs)
	}

	return nil
}

// RequiredFields reports every named struct field of v holding its zero
// value.
func RequiredFields(v interface{}, fields ...string) []FieldError {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	rt := rv.Type()

	var errs []FieldError
	for _, group := range fields {
		for _, name := range strings.Split(group, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}

			sf, ok := rt.FieldByName(name)
			if !ok {
				continue
			}

			if rv.FieldByIndex(sf.Index).IsZero() {
				errs = append(errs, FieldError{Field: fieldName(sf), Error: "required"})
			}
		}
	}

	return errs
}

// ValidateFields runs the validate tags of v.
func ValidateFields(v interface{}) []FieldError {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Error: err.Error()}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fields = append(fields, FieldError{Field: fe.Field(), Error: msg})
	}

	return fields
}

func fieldName(sf reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		if name := strings.SplitN(sf.Tag.Get(tag), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
	}
	return sf.Name
}
