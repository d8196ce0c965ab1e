package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/m-mizutani/gt"
)

func putCase(t *testing.T, s interface {
	PutCase(ctx context.Context, c *model.Case) (string, error)
}) string {
	t.Helper()
	id, err := s.PutCase(context.Background(), &model.Case{
		Marker:      "DCEMarker5_",
		Code:        "void DCEMarker5_(void); int main(void) { return 0; }",
		ReducedCode: "int main(void) {}",
		BadSetting: model.CompilationSetting{
			Project:  model.ProjectGCC,
			Revision: "trunk",
			OptLevel: model.O3,
		},
		GoodSettings: []model.CompilationSetting{
			{Project: model.ProjectGCC, Revision: "releases/gcc-13.1.0", OptLevel: model.O3},
		},
	})
	gt.NoError(t, err)
	return id
}

func TestCaseEndpoints(t *testing.T) {
	server, s := newTestServer(t)
	id := putCase(t, s)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		server.Handler.ServeHTTP(w, req)
		return w
	}

	t.Run("list", func(t *testing.T) {
		w := get("/cases")
		gt.Equal(t, w.Code, http.StatusOK)

		var summaries []map[string]any
		gt.NoError(t, json.NewDecoder(w.Body).Decode(&summaries))
		gt.Equal(t, len(summaries), 1)
		gt.Equal(t, summaries[0]["marker"], "DCEMarker5_")
		gt.Equal(t, summaries[0]["reduced"], true)
	})

	t.Run("get", func(t *testing.T) {
		w := get("/cases/" + id)
		gt.Equal(t, w.Code, http.StatusOK)

		var rec model.CaseRecord
		gt.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
		gt.Equal(t, rec.ID, id)
		gt.Equal(t, rec.Case.Marker, "DCEMarker5_")
	})

	t.Run("code serves the reduced source", func(t *testing.T) {
		w := get("/cases/" + id + "/code")
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, w.Body.String(), "int main(void) {}")
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		w := get("/cases/nope")
		gt.Equal(t, w.Code, http.StatusNotFound)
	})
}
