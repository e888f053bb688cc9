package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/okian/umwero/internal/adapters/catalog"
	"github.com/okian/umwero/internal/adapters/repository"
	service "github.com/okian/umwero/internal/app"
	"github.com/okian/umwero/internal/domain/stroke"
	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorKinds(t *testing.T) {
	Convey("Wrap should classify upstream errors", t, func() {
		cases := []struct {
			err    error
			status int
		}{
			{fmt.Errorf("x: %w", service.ErrInvalidAttempt), http.StatusBadRequest},
			{fmt.Errorf("x: %w", stroke.ErrInvalidInput), http.StatusBadRequest},
			{fmt.Errorf("x: %w", repository.ErrInvalidLimit), http.StatusBadRequest},
			{fmt.Errorf("x: %w", catalog.ErrTemplateNotFound), http.StatusNotFound},
			{fmt.Errorf("x: %w", repository.ErrNotFound), http.StatusNotFound},
			{service.ErrNotStarted, http.StatusServiceUnavailable},
			{errors.New("boom"), http.StatusInternalServerError},
		}
		for _, c := range cases {
			status, _ := statusFor(Wrap("op", c.err))
			So(status, ShouldEqual, c.status)
		}
	})

	Convey("Wrapped errors should keep their cause and message", t, func() {
		cause := fmt.Errorf("x: %w", catalog.ErrTemplateNotFound)
		err := Wrap("api.get", cause)
		So(errors.Is(err, catalog.ErrTemplateNotFound), ShouldBeTrue)
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.get: x: template not found")
	})

	Convey("NewKind should describe the kind", t, func() {
		err := NewKind("api.list", ErrBadRequest)
		So(err.Error(), ShouldEqual, "api.list: bad request")
		So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
	})

	Convey("Wrap should pass nil through", t, func() {
		So(Wrap("op", nil), ShouldBeNil)
	})
}
