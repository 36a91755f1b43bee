// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type DescribeFormat int

const (
	Plain DescribeFormat = iota
	JSON
	YAML
)

func DescribeFlags(fs *pflag.FlagSet, format DescribeFormat) (string, error) {
	return FlagsDescriber{
		Format: format,
	}.DescribeFlags(fs)
}

// FlagsDescriber prints the current flag values.
// Values are taken from pflag.Value.String, so flags registered with a redact function are printed redacted.
type FlagsDescriber struct {
	Format     DescribeFormat
	ShowHidden bool
}

type flagEntry struct {
	name  string
	value any
	plain string
}

func (d FlagsDescriber) DescribeFlags(fs *pflag.FlagSet) (string, error) {
	var entries []flagEntry

	// VisitAll iterates in lexicographical order.
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" {
			return
		}
		if f.Hidden && !d.ShowHidden {
			return
		}

		e := flagEntry{name: f.Name}
		switch {
		case f.Value.Type() == "bool":
			e.value = f.Value.String() == "true"
			e.plain = f.Value.String()
		case isSlice(f.Value):
			s := f.Value.(sliceValue).GetSlice() //nolint:forcetypeassert // checked above
			e.value = s
			e.plain = strings.Join(s, ",")
		default:
			e.value = f.Value.String()
			e.plain = f.Value.String()
		}
		entries = append(entries, e)
	})

	switch d.Format {
	case Plain:
		var sb strings.Builder
		for _, e := range entries {
			fmt.Fprintf(&sb, "%s=%s\n", e.name, e.plain)
		}
		return sb.String(), nil
	case JSON:
		b, err := json.Marshal(entriesMap(entries))
		return string(b), err
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(entriesMap(entries)); err != nil {
			return "", err
		}
		if err := enc.Close(); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return "", errors.New("unknown format")
	}
}

func entriesMap(entries []flagEntry) map[string]any {
	m := make(map[string]any, len(entries))
	for _, e := range entries {
		m[e.name] = e.value
	}
	return m
}

type sliceValue interface {
	GetSlice() []string
}

func isSlice(v pflag.Value) bool {
	_, ok := v.(sliceValue)
	return ok
}
