package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CodeLetter returns the uppercase first letter of name, used as the code prefix.
func CodeLetter(name string) string {
	name = strings.TrimSpace(name)
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// ParseCode splits a client code such as "M32" into its letter and number.
func ParseCode(code string) (string, int, error) {
	r, size := utf8.DecodeRuneInString(code)
	if r == utf8.RuneError || size == len(code) {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidCodeFormat, code)
	}
	n, err := strconv.Atoi(code[size:])
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidCodeFormat, code)
	}
	return string(r), n, nil
}

// GenerateNextCode returns letter followed by one more than the highest number
// already used with that letter, starting at 1.
//
// Example:
//
//	GenerateNextCode([]string{"F1", "F3", "M2"}, "F") -> "F4"
func GenerateNextCode(existingCodes []string, letter string) (string, error) {
	letter = strings.ToUpper(letter)
	if utf8.RuneCountInString(letter) != 1 {
		return "", fmt.Errorf("%w: letter %q", ErrInvalidCodeFormat, letter)
	}
	highest := 0
	for _, code := range existingCodes {
		if !strings.HasPrefix(strings.ToUpper(code), letter) {
			continue
		}
		_, n, err := ParseCode(code)
		if err != nil {
			return "", err
		}
		if n > highest {
			highest = n
		}
	}
	return letter + strconv.Itoa(highest+1), nil
}

// SortClientsByCode returns a copy of clients ordered by code letter and then
// by code number. The input slice is left untouched. Codes that do not parse
// sort after well-formed codes with the same letter, in their original order.
func SortClientsByCode(clients []Client) []Client {
	out := make([]Client, len(clients))
	copy(out, clients)
	sort.SliceStable(out, func(i, j int) bool {
		return lessCode(out[i].Code, out[j].Code)
	})
	return out
}

func lessCode(a, b string) bool {
	la, na, errA := ParseCode(a)
	lb, nb, errB := ParseCode(b)
	if errA != nil || errB != nil {
		fa, fb := firstRune(a), firstRune(b)
		if fa != fb {
			return fa < fb
		}
		return errA == nil && errB != nil
	}
	if la != lb {
		return la < lb
	}
	return na < nb
}

func firstRune(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	return string(r)
}
