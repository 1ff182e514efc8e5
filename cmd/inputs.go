package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codebinder/errors"
	"codebinder/syntax"
)

// inputPaths expands the command arguments into document files. A
// directory contributes its *.json files in name order.
func inputPaths(args []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "input %s", arg)
		}
		paths := []string{arg}
		if info.IsDir() {
			if paths, err = filepath.Glob(filepath.Join(arg, "*.json")); err != nil {
				return nil, errors.Wrapf(err, "input %s", arg)
			}
			if len(paths) == 0 {
				return nil, errors.WithHint(errors.Newf("input %s: no .json documents", arg),
					"Pass syntax documents produced by the front end.")
			}
			sort.Strings(paths)
		}
		for _, p := range paths {
			p = filepath.Clean(p)
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// loadInputs decodes every document and concatenates their files.
func loadInputs(paths []string) ([]*syntax.File, error) {
	var files []*syntax.File
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "input %s", path)
		}
		doc, err := syntax.Decode(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "input %s", path)
		}
		files = append(files, doc.Files...)
	}
	return files, nil
}

// targetList resolves target flags. "all" selects every registered target;
// aliases resolve to their target and duplicates are dropped.
func targetList(names []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, arg := range names {
		for _, name := range strings.Split(arg, ",") {
			name = strings.TrimSpace(name)
			switch {
			case name == "":
			case strings.EqualFold(name, "all"):
				for _, n := range registeredTargets() {
					add(n)
				}
			default:
				em, err := newTarget(name, nil)
				if err != nil {
					return nil, err
				}
				add(em.Name())
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no target selected")
	}
	return out, nil
}
