package tree

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownOrganization = errors.New("organization not recognized")
	ErrInvalidDate         = errors.New("invalid service date")
)

// DefaultRoots returns the built-in organization -> root folder id table.
// A fresh map is returned on every call.
func DefaultRoots() map[string]string {
	return map[string]string{
		"MIS_OSIMO":        "1bsPNJ2BFJIP9Q3WwDSVNy32u-Qu2qMjr",
		"MIS_MONTEGIORGIO": "1PCvF76LJwD6T_OaPtkWg6dh1Tg-DG6or",
		"MIS_GROTTAMMARE":  "12Nj8o942uedxByJOtcSKXvkTBH6ShNNA",
	}
}

var months = [12]string{
	"01_GENNAIO",
	"02_FEBBRAIO",
	"03_MARZO",
	"04_APRILE",
	"05_MAGGIO",
	"06_GIUGNO",
	"07_LUGLIO",
	"08_AGOSTO",
	"09_SETTEMBRE",
	"10_OTTOBRE",
	"11_NOVEMBRE",
	"12_DICEMBRE",
}

// MonthFolder returns the folder name for a calendar month, or "" when m
// is not between January and December.
func MonthFolder(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return months[m-1]
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseServiceDate accepts a plain date, RFC 3339, or a local date-time.
func ParseServiceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Path is the destination of an upload: root / year / module / month.
type Path struct {
	RootID string
	Year   string
	Module string
	Month  string
}

// Children returns the folder names below the root, outermost first.
func (p Path) Children() []string {
	return []string{p.Year, p.Module, p.Month}
}

func (p Path) String() string {
	return strings.Join(append([]string{p.RootID}, p.Children()...), "/")
}

// Resolver maps organizations to their root folder. Its table is fixed at
// construction.
type Resolver struct {
	roots map[string]string
}

func NewResolver(roots map[string]string) *Resolver {
	if len(roots) == 0 {
		roots = DefaultRoots()
	}

	copied := make(map[string]string, len(roots))
	for k, v := range roots {
		copied[k] = v
	}

	return &Resolver{roots: copied}
}

func (r *Resolver) Root(organization string) (string, bool) {
	id, ok := r.roots[organization]
	return id, ok && id != ""
}

func (r *Resolver) Resolve(organization, module string, date time.Time) (Path, error) {
	rootID, ok := r.Root(organization)
	if !ok {
		return Path{}, fmt.Errorf("%w: %s", ErrUnknownOrganization, organization)
	}

	return Path{
		RootID: rootID,
		Year:   fmt.Sprintf("%04d", date.Year()),
		Module: module,
		Month:  MonthFolder(date.Month()),
	}, nil
}
