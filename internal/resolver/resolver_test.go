package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/dag"
	"github.com/vk/assetgraph/internal/srcfs"
)

func newFS(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fsys := srcfs.Memory()
	for p, content := range files {
		require.NoError(t, util.WriteFile(fsys, p, []byte(content), 0o644))
	}
	return fsys
}

func TestResolve_Site(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fsys := newFS(t, map[string]string{
		"html/index.html":                      `<link href="css/app.css" rel="stylesheet"><script src="app.js"></script><a href="https://example.com">x</a>`,
		"html/css/app.css":                     `@import "~normalize/normalize.css"; body { background: url(../img/bg.png?v=2#top) }`,
		"html/app.js":                          `import Elm from "./Main"; import lib from "lib"; fetch("https://api.example.com")`,
		"html/Main.elm":                        `module Main exposing (main)`,
		"html/img/bg.png":                      "PNG",
		"node_modules/lib/index.js":            `export default 1`,
		"node_modules/normalize/normalize.css": `html{}`,
		"html/favicons/favicon.ico":            "ICO",
		"html/favicons/sub/a.png":              "PNG",
	})
	r := New(fsys, config.Resolve{
		SearchPaths: []string{"node_modules"},
		Extensions:  []string{".js", ".elm"},
	}, []*config.CopySpec{{From: "html/favicons", To: "favicons"}})

	// --- Act ---
	g, err := r.Resolve(context.Background(), []string{"html/index.html"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"html/index.html"}, g.Entries)
	assert.Equal(t, []string{
		"html/Main.elm",
		"html/app.js",
		"html/css/app.css",
		"html/favicons/favicon.ico",
		"html/favicons/sub/a.png",
		"html/img/bg.png",
		"html/index.html",
		"node_modules/lib/index.js",
		"node_modules/normalize/normalize.css",
	}, g.DAG.Nodes())

	deps, err := g.DAG.Dependencies("html/index.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"html/app.js", "html/css/app.css"}, deps)

	deps, err = g.DAG.Dependencies("html/app.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"html/Main.elm", "node_modules/lib/index.js"}, deps)

	css := g.Asset("html/css/app.css")
	require.NotNil(t, css)
	assert.Equal(t, "html/img/bg.png", css.Refs["../img/bg.png?v=2#top"])
	assert.Equal(t, "node_modules/normalize/normalize.css", css.Refs["~normalize/normalize.css"])

	ico := g.Asset("html/favicons/favicon.ico")
	require.NotNil(t, ico)
	assert.True(t, ico.Verbatim)
	assert.Equal(t, "favicons/favicon.ico", ico.OutPath)
	assert.Equal(t, "favicons/sub/a.png", g.Asset("html/favicons/sub/a.png").OutPath)
}

func TestResolve_Cycle(t *testing.T) {
	t.Parallel()

	fsys := newFS(t, map[string]string{
		"a.css": `@import "b.css";`,
		"b.css": `@import "a.css";`,
	})

	_, err := New(fsys, config.Resolve{}, nil).Resolve(context.Background(), []string{"a.css"})

	var cycleErr *dag.CyclicDependencyError
	require.True(t, errors.As(err, &cycleErr), "got %v", err)
	assert.Contains(t, cycleErr.Cycle, "a.css")
	assert.Contains(t, cycleErr.Cycle, "b.css")
	assert.Equal(t, cycleErr.Cycle[0], cycleErr.Cycle[len(cycleErr.Cycle)-1])
}

func TestResolve_SelfReference(t *testing.T) {
	t.Parallel()

	fsys := newFS(t, map[string]string{"a.css": `@import "./a.css";`})

	_, err := New(fsys, config.Resolve{}, nil).Resolve(context.Background(), []string{"a.css"})

	var cycleErr *dag.CyclicDependencyError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"a.css", "a.css"}, cycleErr.Cycle)
}

func TestResolve_Missing(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		files        map[string]string
		entries      []string
		copies       []*config.CopySpec
		wantReferrer string
		wantRef      string
	}{
		{
			name:    "missing entry",
			files:   map[string]string{"a.js": ""},
			entries: []string{"b.js"},
			wantRef: "b.js",
		},
		{
			name:         "missing reference",
			files:        map[string]string{"index.html": `<img src="nope.png">`},
			entries:      []string{"index.html"},
			wantReferrer: "index.html",
			wantRef:      "nope.png",
		},
		{
			name:         "reference escaping the root",
			files:        map[string]string{"a.css": `@import "../../etc/passwd";`},
			entries:      []string{"a.css"},
			wantReferrer: "a.css",
			wantRef:      "../../etc/passwd",
		},
		{
			name:         "missing copy source",
			files:        map[string]string{"a.png": ""},
			entries:      []string{"a.png"},
			copies:       []*config.CopySpec{{From: "static"}},
			wantReferrer: "copy",
			wantRef:      "static",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fsys := newFS(t, tc.files)
			_, err := New(fsys, config.Resolve{}, tc.copies).Resolve(context.Background(), tc.entries)

			var missing *MissingAssetError
			require.True(t, errors.As(err, &missing), "got %v", err)
			assert.Equal(t, tc.wantReferrer, missing.Referrer)
			assert.Equal(t, tc.wantRef, missing.Reference)
		})
	}
}

func TestResolve_CopyDoesNotReplaceGraphMember(t *testing.T) {
	t.Parallel()

	fsys := newFS(t, map[string]string{
		"index.html":        `<img src="static/logo.png">`,
		"static/logo.png":   "PNG",
		"static/robots.txt": "User-agent: *",
	})

	g, err := New(fsys, config.Resolve{}, []*config.CopySpec{{From: "static"}}).Resolve(context.Background(), []string{"index.html"})
	require.NoError(t, err)

	assert.False(t, g.Asset("static/logo.png").Verbatim)
	robots := g.Asset("static/robots.txt")
	require.NotNil(t, robots)
	assert.True(t, robots.Verbatim)
	assert.Equal(t, "robots.txt", robots.OutPath)
}

func TestResolve_Canceled(t *testing.T) {
	t.Parallel()

	fsys := newFS(t, map[string]string{"a.js": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fsys, config.Resolve{}, nil).Resolve(ctx, []string{"a.js"})
	assert.ErrorIs(t, err, context.Canceled)
}
