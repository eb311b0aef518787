// Package isoduration converts between ISO 8601 duration strings and
// millisecond counts that fit in a uint32.
//
// Calendar units use fixed lengths: a year is 365 days, a month is 30 days
// and a week is 7 days.
package isoduration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxLength is the longest string FormatMilliseconds produces.
const MaxLength = 19

const (
	Second = uint64(1000)
	Minute = 60 * Second
	Hour   = 60 * Minute
	Day    = 24 * Hour
	Week   = 7 * Day
	Month  = 30 * Day
	Year   = 365 * Day
)

var (
	ErrInvalid  = errors.New("invalid ISO 8601 duration")
	ErrOverflow = errors.New("ISO 8601 duration overflows uint32 milliseconds")
)

type unit struct {
	designator byte
	ms         uint64
}

var (
	dateUnits = []unit{{'Y', Year}, {'M', Month}, {'W', Week}, {'D', Day}}
	timeUnits = []unit{{'H', Hour}, {'M', Minute}, {'S', Second}}
)

// ParseMilliseconds parses s and returns the total duration in milliseconds.
// Grammar errors wrap ErrInvalid; totals above math.MaxUint32 wrap ErrOverflow.
func ParseMilliseconds(s string) (uint32, error) {
	if len(s) < 2 || s[0] != 'P' {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	p := parser{src: s, pos: 1}
	if err := p.section(dateUnits, false); err != nil {
		return 0, err
	}
	if p.pos < len(s) && s[p.pos] == 'T' {
		p.pos++
		before := p.components
		if err := p.section(timeUnits, true); err != nil {
			return 0, err
		}
		if p.components == before {
			return 0, fmt.Errorf("%w: %q has no time component after T", ErrInvalid, s)
		}
	}
	if p.pos != len(s) || p.components == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return uint32(p.total), nil
}

type parser struct {
	src        string
	pos        int
	total      uint64
	components int
}

// section consumes components whose designators appear in order within units.
func (p *parser) section(units []unit, allowFraction bool) error {
	next := 0
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		start := p.pos
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		whole := p.src[start:p.pos]
		frac := ""
		if p.pos < len(p.src) && (p.src[p.pos] == '.' || p.src[p.pos] == ',') {
			p.pos++
			fstart := p.pos
			for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
				p.pos++
			}
			frac = p.src[fstart:p.pos]
			if frac == "" {
				return fmt.Errorf("%w: %q has an empty fraction", ErrInvalid, p.src)
			}
		}
		if p.pos >= len(p.src) {
			return fmt.Errorf("%w: %q ends without a designator", ErrInvalid, p.src)
		}
		d := p.src[p.pos]
		p.pos++
		idx := -1
		for i := next; i < len(units); i++ {
			if units[i].designator == d {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: unexpected designator %q in %q", ErrInvalid, d, p.src)
		}
		next = idx + 1
		u := units[idx]
		if frac != "" && (!allowFraction || u.designator != 'S') {
			return fmt.Errorf("%w: fraction only allowed on seconds in %q", ErrInvalid, p.src)
		}
		if err := p.add(whole, frac, u.ms); err != nil {
			return err
		}
		p.components++
	}
	return nil
}

func (p *parser) add(whole, frac string, unitMS uint64) error {
	n, err := strconv.ParseUint(whole, 10, 64)
	if err != nil || n > math.MaxUint32/unitMS {
		return fmt.Errorf("%w: %q", ErrOverflow, p.src)
	}
	v := n * unitMS
	if frac != "" {
		if len(frac) > 3 {
			frac = frac[:3]
		}
		for len(frac) < 3 {
			frac += "0"
		}
		ms, _ := strconv.ParseUint(frac, 10, 64)
		v += ms
	}
	p.total += v
	if p.total > math.MaxUint32 {
		return fmt.Errorf("%w: %q", ErrOverflow, p.src)
	}
	return nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// FormatMilliseconds renders ms as P[nD][T[nH][nM][n[.fff]S]], using PT0S for zero.
func FormatMilliseconds(ms uint32) (string, error) {
	if ms == 0 {
		return "PT0S", nil
	}
	rest := uint64(ms)
	days := rest / Day
	rest %= Day
	hours := rest / Hour
	rest %= Hour
	minutes := rest / Minute
	rest %= Minute
	seconds := rest / Second
	millis := rest % Second

	var b strings.Builder
	b.Grow(MaxLength)
	b.WriteByte('P')
	if days > 0 {
		b.WriteString(strconv.FormatUint(days, 10))
		b.WriteByte('D')
	}
	if hours > 0 || minutes > 0 || seconds > 0 || millis > 0 {
		b.WriteByte('T')
		if hours > 0 {
			b.WriteString(strconv.FormatUint(hours, 10))
			b.WriteByte('H')
		}
		if minutes > 0 {
			b.WriteString(strconv.FormatUint(minutes, 10))
			b.WriteByte('M')
		}
		if seconds > 0 || millis > 0 {
			b.WriteString(strconv.FormatUint(seconds, 10))
			if millis > 0 {
				fmt.Fprintf(&b, ".%03d", millis)
			}
			b.WriteByte('S')
		}
	}
	if b.Len() > MaxLength {
		return "", fmt.Errorf("formatted duration %q exceeds %d characters", b.String(), MaxLength)
	}
	return b.String(), nil
}
