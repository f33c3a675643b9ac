package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveListStateRemembersPage(t *testing.T) {
	sess := &Session{values: map[string]string{}}

	state := ResolveListState(sess, "agents", url.Values{"page": {"3"}})
	assert.Equal(t, 3, state.Page)

	// Coming back without a page restores it.
	state = ResolveListState(sess, "agents", url.Values{})
	assert.Equal(t, 3, state.Page)

	// Tables do not share pages.
	assert.Equal(t, 1, ResolveListState(sess, "regions", url.Values{}).Page)
}

func TestResolveListStateResetsOnNewSearch(t *testing.T) {
	sess := &Session{values: map[string]string{}}
	ResolveListState(sess, "agents", url.Values{"page": {"4"}})

	state := ResolveListState(sess, "agents", url.Values{"search": {"kamau"}})
	assert.Equal(t, 1, state.Page)
	assert.Equal(t, "kamau", state.Search)

	ResolveListState(sess, "agents", url.Values{"search": {"kamau"}, "page": {"2"}})
	state = ResolveListState(sess, "agents", url.Values{"search": {"kamau"}})
	assert.Equal(t, 2, state.Page, "same search keeps the page")

	state = ResolveListState(sess, "agents", url.Values{})
	assert.Equal(t, "kamau", state.Search)

	state.Remember(sess, 1)
	assert.Equal(t, "1", sess.Get("page:agents"))
}
