// Package listview renders the person list as a pure function of a cache
// snapshot and a search query.
package listview

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/mesh-intelligence/roster/internal/cache"
	"github.com/mesh-intelligence/roster/internal/search"
	"github.com/mesh-intelligence/roster/pkg/types"
)

// Screen text.
const (
	MsgLoading         = "Loading persons..."
	MsgEmpty           = "No persons yet"
	MsgEmptyHint       = "Add someone to get started!"
	MsgNoMatches       = "No matching persons found"
	MsgNoMatchesHint   = "Try a different search term"
	avatarPlaceholder  = "   "
	actionsColumnLabel = "[edit] [delete]"
)

// Renderer draws snapshots to a writer.
type Renderer struct {
	theme   Theme
	noColor bool
}

// New returns a renderer for the named theme. noColor strips all escape
// sequences.
func New(theme string, noColor bool) *Renderer {
	return &Renderer{theme: ThemeFor(theme), noColor: noColor}
}

// Render writes the view of snap filtered by query. A first load with no
// data shows the loading line; a refetch keeps showing the previous list.
func (r *Renderer) Render(w io.Writer, snap cache.Snapshot, query string) error {
	if snap.Persons == nil {
		switch {
		case snap.State == cache.StateError:
			_, err := fmt.Fprintln(w, r.paint(color.New(color.FgRed), errText(snap.Err)))
			return err
		case snap.IsLoading() || snap.State == cache.StateIdle:
			_, err := fmt.Fprintln(w, r.paint(r.theme.heading(), MsgLoading))
			return err
		}
	}

	visible := search.Filter(snap.Persons, query)
	if len(visible) == 0 {
		title, hint := MsgEmpty, MsgEmptyHint
		if !search.Blank(query) {
			title, hint = MsgNoMatches, MsgNoMatchesHint
		}
		_, err := fmt.Fprintf(w, "%s\n%s\n", r.paint(r.theme.heading(), title), r.paint(r.theme.muted(), hint))
		return err
	}

	if snap.State == cache.StateError {
		if _, err := fmt.Fprintln(w, r.paint(color.New(color.FgRed), errText(snap.Err))); err != nil {
			return err
		}
	}
	return r.table(w, visible)
}

// table lays out rows with tabwriter. The coloured avatar is prefixed after
// layout because escape sequences would skew column widths.
func (r *Renderer) table(w io.Writer, persons []types.Person) error {
	var body bytes.Buffer
	tw := tabwriter.NewWriter(&body, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEMAIL\tAGE\tID\tACTIONS")
	for _, p := range persons {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Email, ageText(p.Age), p.ID, actionsColumnLabel)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sc := bufio.NewScanner(&body)
	line := 0
	for sc.Scan() {
		prefix := avatarPlaceholder
		text := sc.Text()
		if line == 0 {
			text = r.paint(r.theme.heading(), text)
		} else {
			prefix = r.Avatar(persons[line-1])
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", prefix, text); err != nil {
			return err
		}
		line++
	}
	return sc.Err()
}

// Avatar renders the initial on its palette colour, three cells wide.
func (r *Renderer) Avatar(p types.Person) string {
	bg := AvatarColor(p.Name)
	c := color.BgRGB(bg.R, bg.G, bg.B).Add(color.FgBlack, color.Bold)
	return r.paint(c, " "+p.Initial()+" ")
}

// Row renders one person on a single line, as used by the interactive shell.
func (r *Renderer) Row(p types.Person) string {
	parts := []string{r.Avatar(p), p.Name, "<" + p.Email + ">"}
	if p.Age != nil {
		parts = append(parts, "Age: "+strconv.Itoa(*p.Age))
	}
	parts = append(parts, r.paint(r.theme.muted(), "id="+p.ID.String()))
	return strings.Join(parts, " ")
}

func (r *Renderer) paint(c *color.Color, s string) string {
	if r.noColor {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func ageText(age *int) string {
	if age == nil {
		return ""
	}
	return "Age: " + strconv.Itoa(*age)
}

func errText(err error) string {
	if err == nil {
		return types.MsgFetchFailed
	}
	return err.Error()
}
