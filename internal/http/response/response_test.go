package response

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/taskforge/taskforge-backend/internal/platform/apierr"
)

func TestRespondServiceErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apierr.NotFound("attachment x"), http.StatusNotFound},
		{"conflict", apierr.Conflict("policy for project"), http.StatusConflict},
		{"invalid argument", apierr.InvalidArgument("file_name is required"), http.StatusBadRequest},
		{"storage failure", apierr.StorageFailure("copy", fmt.Errorf("backend down")), http.StatusBadGateway},
		{"wrapped sentinel", fmt.Errorf("outer: %w", apierr.NotFound("version 3")), http.StatusNotFound},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"typed", apierr.New(http.StatusTeapot, "teapot", fmt.Errorf("short and stout")), http.StatusTeapot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondServiceError(c, tc.err)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
