package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/okian/umwero/internal/domain/model"
	"github.com/okian/umwero/internal/domain/stroke"
)

const (
	maxBodyBytes = 4 << 20
	notBlankTag  = "notblank"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON names instead of Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		})
}

// pointDTO is one sampled pen position. Coordinates are bounded to
// +/-1e6 so centroid and length sums stay finite.
type pointDTO struct {
	X *float64 `json:"x" validate:"required,min=-1000000,max=1000000"`
	Y *float64 `json:"y" validate:"required,min=-1000000,max=1000000"`
}

type strokeDTO struct {
	Points    []pointDTO `json:"points" validate:"dive"`
	Timestamp string     `json:"timestamp,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// attemptRequest mirrors the OpenAPI schema for POST /attempts.
type attemptRequest struct {
	AttemptID   string      `json:"attempt_id,omitempty" validate:"omitempty,max=128"`
	LearnerID   string      `json:"learner_id" validate:"required,notblank,max=128"`
	TemplateID  string      `json:"template_id" validate:"required,notblank,max=64"`
	Strokes     []strokeDTO `json:"strokes" validate:"dive"`
	SubmittedAt string      `json:"submitted_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type batchRequest struct {
	Attempts []attemptRequest `json:"attempts" validate:"required,min=1,dive"`
}

type normalizeRequest struct {
	Points []pointDTO `json:"points" validate:"required,min=1,dive"`
}

func (p pointDTO) point() stroke.Point {
	return stroke.Point{X: *p.X, Y: *p.Y}
}

func toPoints(in []pointDTO) []stroke.Point {
	out := make([]stroke.Point, len(in))
	for i, p := range in {
		out[i] = p.point()
	}
	return out
}

// attempt converts a validated request. Timestamps were checked by the
// datetime tag, so parse errors cannot happen here.
func (a attemptRequest) attempt() model.Attempt {
	strokes := make([]stroke.Stroke, len(a.Strokes))
	for i, s := range a.Strokes {
		strokes[i] = stroke.Stroke{Points: toPoints(s.Points)}
		if s.Timestamp != "" {
			strokes[i].Timestamp, _ = time.Parse(time.RFC3339, s.Timestamp)
		}
	}
	out := model.Attempt{
		AttemptID:  strings.TrimSpace(a.AttemptID),
		LearnerID:  strings.TrimSpace(a.LearnerID),
		TemplateID: strings.TrimSpace(a.TemplateID),
		Strokes:    strokes,
	}
	if a.SubmittedAt != "" {
		out.SubmittedAt, _ = time.Parse(time.RFC3339, a.SubmittedAt)
	}
	return out
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fieldErrors(verrs)
		}
		return err
	}
	return nil
}

// fieldErrors flattens validation errors into one deterministic message.
func fieldErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		msgs = append(msgs, ns+": "+fe.Translate(translator))
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}
