package listctl

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"techblok-cli/internal/model"
)

func userFixture(n int) []model.User {
	users := make([]model.User, 0, n)
	for i := 0; i < n; i++ {
		role := model.RoleUser
		if i%5 == 0 {
			role = model.RoleAdmin
		}
		users = append(users, model.User{
			UID:      fmt.Sprintf("uid-%d", i),
			Username: fmt.Sprintf("user%02d", i),
			FullName: fmt.Sprintf("Full Name %02d", i),
			Role:     role,
		})
	}
	return users
}

func TestVisibleSlice_NeverExceedsPageSize(t *testing.T) {
	c := New(8, model.User.SearchFields)
	c.ApplyLoad(c.BeginLoad(), userFixture(19))

	for page := 1; page <= c.PageCount(); page++ {
		c.SetPage(page)
		if got := len(c.VisibleSlice()); got > 8 {
			t.Fatalf("page %d: visible slice has %d items, page size is 8", page, got)
		}
	}
	c.SetPage(3)
	if got := len(c.VisibleSlice()); got != 3 {
		t.Fatalf("last page: got %d items, want 3", got)
	}
}

func TestSearch_FiltersBeforePaginating(t *testing.T) {
	c := New(8, model.User.SearchFields)
	users := userFixture(10)
	c.ApplyLoad(c.BeginLoad(), users)

	// Two admins among ten users (i=0 and i=5).
	c.SetSearchTerm("admin")
	if got := len(c.Filtered()); got != 2 {
		t.Fatalf("filtered: got %d, want 2", got)
	}
	if got := c.PageCount(); got != 1 {
		t.Fatalf("page count: got %d, want 1", got)
	}
	if got := len(c.VisibleSlice()); got != 2 {
		t.Fatalf("visible: got %d, want 2", got)
	}
}

func TestSearch_MatchesLocalizedRoleLabel(t *testing.T) {
	c := New(8, model.User.SearchFields)
	c.ApplyLoad(c.BeginLoad(), userFixture(10))

	c.SetSearchTerm("администр")
	if got := len(c.Filtered()); got != 2 {
		t.Fatalf("filtered by localized label: got %d, want 2", got)
	}
}

func TestSetSearchTerm_ResetsToPageOne(t *testing.T) {
	c := New(5, model.User.SearchFields)
	c.ApplyLoad(c.BeginLoad(), userFixture(23))

	c.SetPage(4)
	if c.Page() != 4 {
		t.Fatalf("page: got %d, want 4", c.Page())
	}
	c.SetSearchTerm("user")
	if c.Page() != 1 {
		t.Fatalf("page after search change: got %d, want 1", c.Page())
	}
}

func TestSetPage_ClampsAndNoopsWhenEmpty(t *testing.T) {
	c := New(5, model.User.SearchFields)

	c.SetPage(7)
	if c.Page() != 1 {
		t.Fatalf("page with no items: got %d, want 1", c.Page())
	}

	c.ApplyLoad(c.BeginLoad(), userFixture(12))
	c.SetPage(99)
	if c.Page() != 3 {
		t.Fatalf("page clamped high: got %d, want 3", c.Page())
	}
	c.SetPage(-2)
	if c.Page() != 1 {
		t.Fatalf("page clamped low: got %d, want 1", c.Page())
	}
}

func TestApplyLoad_DiscardsStaleResponse(t *testing.T) {
	c := New(8, model.User.SearchFields)

	seqA := c.BeginLoad()
	seqB := c.BeginLoad()

	if !c.ApplyLoad(seqB, userFixture(3)) {
		t.Fatal("latest load was rejected")
	}
	if c.ApplyLoad(seqA, userFixture(10)) {
		t.Fatal("stale load was applied")
	}
	if got := len(c.Items()); got != 3 {
		t.Fatalf("items: got %d, want 3 from the newer load", got)
	}
}

func TestLoad_KeepsOldItemsOnFetchError(t *testing.T) {
	c := New(8, model.User.SearchFields)
	c.ApplyLoad(c.BeginLoad(), userFixture(4))

	fetchErr := errors.New("backend down")
	err := c.Load(context.Background(), func(context.Context) ([]model.User, error) {
		return nil, fetchErr
	})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("err: got %v, want %v", err, fetchErr)
	}
	if got := len(c.Items()); got != 4 {
		t.Fatalf("items after failed load: got %d, want 4", got)
	}
}

func TestRemoveLocally_ReclampsPage(t *testing.T) {
	c := New(5, model.User.SearchFields)
	c.ApplyLoad(c.BeginLoad(), userFixture(11))

	c.SetPage(3)
	c.RemoveLocally(func(u model.User) bool { return u.UID == "uid-10" })
	if c.Page() != 2 {
		t.Fatalf("page after removing the only item of page 3: got %d, want 2", c.Page())
	}
	if got := len(c.Items()); got != 10 {
		t.Fatalf("items: got %d, want 10", got)
	}
}

func TestRange_ReportsOneBasedSpan(t *testing.T) {
	c := New(8, model.User.SearchFields)
	c.ApplyLoad(c.BeginLoad(), userFixture(19))

	c.SetPage(2)
	first, last, total := c.Range()
	if first != 9 || last != 16 || total != 19 {
		t.Fatalf("range page 2: got %d-%d of %d, want 9-16 of 19", first, last, total)
	}

	c.SetSearchTerm("no such user")
	first, last, total = c.Range()
	if first != 0 || last != 0 || total != 0 {
		t.Fatalf("range with no matches: got %d-%d of %d, want zeros", first, last, total)
	}
}

func TestPageWindow(t *testing.T) {
	cases := []struct {
		current, total, window int
		want                   []int
	}{
		{1, 3, 5, []int{1, 2, 3}},
		{1, 10, 5, []int{1, 2, 3, 4, 5}},
		{5, 10, 5, []int{3, 4, 5, 6, 7}},
		{10, 10, 5, []int{6, 7, 8, 9, 10}},
		{9, 10, 5, []int{6, 7, 8, 9, 10}},
		{2, 0, 5, nil},
	}
	for _, tc := range cases {
		got := PageWindow(tc.current, tc.total, tc.window)
		if len(got) != len(tc.want) {
			t.Fatalf("PageWindow(%d,%d,%d) = %v, want %v", tc.current, tc.total, tc.window, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("PageWindow(%d,%d,%d) = %v, want %v", tc.current, tc.total, tc.window, got, tc.want)
			}
		}
	}
}
