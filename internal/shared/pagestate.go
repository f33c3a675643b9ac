package shared

import (
	"net/url"
	"strconv"
	"strings"
)

// ListState is the remembered search term and page of one table.
type ListState struct {
	Key    string
	Search string
	Page   int
}

// ResolveListState merges query parameters with the per-session page map. A
// missing page restores the remembered one; a changed search resets to page 1.
func ResolveListState(sess *Session, key string, query url.Values) ListState {
	state := ListState{Key: key, Page: 1}
	pageKey := "page:" + key
	searchKey := "search:" + key

	search, hasSearch := query["search"]
	if hasSearch {
		state.Search = strings.TrimSpace(search[0])
	} else if sess != nil {
		state.Search = sess.Get(searchKey)
	}

	if raw := query.Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			state.Page = page
		}
	} else if sess != nil && (!hasSearch || state.Search == sess.Get(searchKey)) {
		if page, err := strconv.Atoi(sess.Get(pageKey)); err == nil && page > 0 {
			state.Page = page
		}
	}

	if sess != nil {
		if state.Search == "" {
			sess.Delete(searchKey)
		} else {
			sess.Set(searchKey, state.Search)
		}
		sess.Set(pageKey, strconv.Itoa(state.Page))
	}
	return state
}

// Remember stores the page actually shown after clamping.
func (s ListState) Remember(sess *Session, page int) {
	if sess == nil {
		return
	}
	sess.Set("page:"+s.Key, strconv.Itoa(page))
}
