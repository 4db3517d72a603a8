package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"localcity/services/reconcile"
)

type page struct {
	Name    string            `json:"name"`
	Tags    []string          `json:"tags"`
	Hours   map[string]string `json:"hours"`
	private int
}

func TestEqualIsStructural(t *testing.T) {
	a := page{Name: "Bakery", Tags: []string{"bread"}, Hours: map[string]string{"monday": "09:00-17:00"}}
	b := page{Name: "Bakery", Tags: []string{"bread"}, Hours: map[string]string{"monday": "09:00-17:00"}, private: 7}

	require.True(t, reconcile.Equal(a, b), "unexported fields are not part of the document")

	b.Hours["tuesday"] = "Closed"
	require.False(t, reconcile.Equal(a, b))
}

func TestEqualTreatsSliceOrderAsSignificant(t *testing.T) {
	a := page{Tags: []string{"a", "b"}}
	b := page{Tags: []string{"b", "a"}}
	require.False(t, reconcile.Equal(a, b))
}

func TestChangesListsPointers(t *testing.T) {
	from := page{Name: "Bakery", Hours: map[string]string{"monday": "09:00-17:00"}}
	to := page{Name: "Bakery & Cafe", Hours: map[string]string{"monday": "Closed"}}

	paths, err := reconcile.Changes(from, to)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"/name", "/hours/monday"}, paths)
}

func TestCloneJSONIsDeep(t *testing.T) {
	orig := page{Name: "Bakery", Tags: []string{"bread"}}
	cp := reconcile.CloneJSON(orig)
	cp.Tags[0] = "cake"
	require.Equal(t, "bread", orig.Tags[0])
}
