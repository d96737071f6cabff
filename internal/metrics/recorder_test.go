package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewRecorder(reg)
	r.ObserveStage("parse", 5*time.Millisecond)
	r.IncRender(nil)
	r.IncRender(errors.New("boom"))
	r.ObserveGeneration("gpt-4.1-nano", time.Second, nil)
	r.ObserveCache("story", true)
	r.ObserveCache("story", false)
	r.ObserveCache("story", false)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 4)

	counters := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				key := mf.GetName()
				for _, l := range m.GetLabel() {
					key += "," + l.GetValue()
				}
				counters[key] = c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, counters["docweave_renders_total,failed"])
	assert.Equal(t, 2.0, counters["docweave_cache_lookups_total,story,miss"])
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveStage("parse", time.Millisecond)
	r.IncRender(nil)
	r.ObserveGeneration("m", time.Millisecond, nil)
	r.ObserveCache("story", true)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewRecorder(reg).IncRender(nil)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "docweave_renders_total"))
}
