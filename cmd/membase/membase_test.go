package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/store"
)

const peopleYAML = `
- id: 1
  first: John
  last: Doe
  age: 21
  tags: [admin, dev]
- id: 2
  first: Jane
  last: Doe
  age: 34
  tags: [dev]
- id: 3
  first: Paul
  last: Smith
  age: 21
  city: Berlin
- id: 4
  first: Anna
  last: smith
  age: 58
  address: {city: Paris}
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the root command and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func firstNames(t *testing.T, output string) []string {
	t.Helper()
	var records []record
	require.NoError(t, json.Unmarshal([]byte(output), &records))

	names := make([]string, len(records))
	for i, r := range records {
		names[i], _ = r["first"].(string)
	}
	return names
}

func TestQueryCommand(t *testing.T) {
	fixture := writeFixture(t, "people.yaml", peopleYAML)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "single clause",
			args: []string{"last=Doe"},
			want: []string{"John", "Jane"},
		},
		{
			name: "and section",
			args: []string{"last=Doe & age=21"},
			want: []string{"John"},
		},
		{
			name: "sections are united",
			args: []string{"last=Doe & age=21 | last=Smith"},
			want: []string{"John", "Paul"},
		},
		{
			name: "contains on list field",
			args: []string{"tags~dev"},
			want: []string{"John", "Jane"},
		},
		{
			name: "case insensitive index",
			args: []string{"surname=SMITH", "--index", "surname=last,ci"},
			want: []string{"Paul", "Anna"},
		},
		{
			name: "max reducer",
			args: []string{"last=Doe", "--index", "last,max:age"},
			want: []string{"Jane"},
		},
		{
			name: "oldest limit",
			args: []string{"age=21", "--index", "age,oldest:1"},
			want: []string{"John"},
		},
		{
			name: "limit",
			args: []string{"last=Doe", "--limit", "1"},
			want: []string{"John"},
		},
		{
			name: "no match",
			args: []string{"last=Nobody"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"query", fixture, "--id", "id"}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, firstNames(t, out))
		})
	}
}

func TestQueryCommand_ObjectFieldsAreSkipped(t *testing.T) {
	fixture := writeFixture(t, "people.yaml", peopleYAML)

	out, err := execute(t, "query", fixture, "address=Paris", "--id", "id")
	require.NoError(t, err, "indexing failures are logged, not fatal")
	assert.Empty(t, firstNames(t, out))
}

func TestQueryCommand_YAMLOutput(t *testing.T) {
	fixture := writeFixture(t, "people.json", `[
		{"id": "a", "first": "John", "age": 21},
		{"id": "b", "first": "Jane", "age": 34}
	]`)

	out, err := execute(t, "query", fixture, "age=21", "--format", "yaml")
	require.NoError(t, err)

	var records []record
	require.NoError(t, yaml.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "John", records[0]["first"])
}

func TestQueryCommand_ContentIdentity(t *testing.T) {
	fixture := writeFixture(t, "dupes.yaml", `
- {first: John, last: Doe}
- {first: John, last: Doe}
- {first: John, last: Roe}
`)

	out, err := execute(t, "query", fixture, "first=John")
	require.NoError(t, err)
	assert.Len(t, firstNames(t, out), 2, "identical records collapse into one member")
}

func TestQueryCommand_Errors(t *testing.T) {
	fixture := writeFixture(t, "people.yaml", peopleYAML)

	tests := []struct {
		name   string
		args   []string
		target error
	}{
		{"bad clause", []string{"query", fixture, "last"}, errors.ErrInvalidData},
		{"empty section", []string{"query", fixture, "last=Doe |"}, errors.ErrInvalidData},
		{"unknown modifier", []string{"query", fixture, "last=Doe", "--index", "last,sorted"}, errors.ErrInvalidData},
		{"bad limit modifier", []string{"query", fixture, "age=21", "--index", "age,newest:x"}, errors.ErrInvalidData},
		{"missing id", []string{"query", fixture, "last=Doe", "--id", "uuid"}, errors.ErrNoIdentity},
		{"bad format", []string{"query", fixture, "last=Doe", "--format", "xml"}, errors.ErrInvalidData},
		{"duplicate index", []string{"query", fixture, "last=Doe", "--index", "last", "--index", "last"},
			errors.ErrIndexExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level", "loud", "validate", "x.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidateCommand(t *testing.T) {
	path := writeFixture(t, "store.yaml", `
type: expiring
expiration:
  ttl: 90s
`)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)

	var config store.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &config))
	assert.Equal(t, store.TypeExpiring, config.Type)
	assert.Equal(t, 90*time.Second, config.Expiration.TTL)

	bad := writeFixture(t, "bad.yaml", "type: disk\n")
	_, err = execute(t, "validate", bad)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	typo := writeFixture(t, "typo.yaml", "type: expiring\nexpiration:\n  ttl: 90s\n  reset_on_acess: true\n")
	_, err = execute(t, "validate", typo)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "reset_on_acess")

	_, err = execute(t, "validate")
	assert.Error(t, err)
}

func TestValidateCommand_Schema(t *testing.T) {
	out, err := execute(t, "validate", "--schema")
	require.NoError(t, err)
	assert.JSONEq(t, string(store.ConfigSchema()), out)
}

func TestRunWatch_Drains(t *testing.T) {
	fixture := writeFixture(t, "people.yaml", peopleYAML)

	opts := &watchOptions{
		IDField:  "id",
		TTL:      50 * time.Millisecond,
		Interval: 10 * time.Millisecond,
		Timeout:  5 * time.Second,
		Query:    "last=Doe",
	}

	var out bytes.Buffer
	require.NoError(t, runWatch(context.Background(), &out, nil, opts, fixture))

	var summary store.StatsSummary
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, int64(4), summary.Adds)
	assert.Equal(t, int64(4), summary.Expirations)
	assert.Zero(t, summary.CurrentSize)
	assert.Equal(t, int64(4), summary.MaxSize)
}

func TestRunWatch_Timeout(t *testing.T) {
	fixture := writeFixture(t, "people.yaml", peopleYAML)

	opts := &watchOptions{
		IDField:  "id",
		TTL:      time.Hour,
		Interval: 10 * time.Millisecond,
		Timeout:  50 * time.Millisecond,
	}

	var out bytes.Buffer
	require.NoError(t, runWatch(context.Background(), &out, nil, opts, fixture))

	var summary store.StatsSummary
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &summary))
	assert.Zero(t, summary.Expirations)
	assert.Equal(t, int64(4), summary.CurrentSize)
}

func TestRunWatch_StopsMetricsServer(t *testing.T) {
	fixture := writeFixture(t, "people.yaml", peopleYAML)

	opts := &watchOptions{
		IDField:     "id",
		TTL:         50 * time.Millisecond,
		Interval:    10 * time.Millisecond,
		Timeout:     5 * time.Second,
		MetricsAddr: "127.0.0.1:0",
	}

	done := make(chan error, 1)
	var out bytes.Buffer
	go func() { done <- runWatch(context.Background(), &out, nil, opts, fixture) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not return after the store drained")
	}

	var summary store.StatsSummary
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, int64(4), summary.Expirations)
}

func TestRunWatch_MetricsAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	fixture := writeFixture(t, "people.yaml", peopleYAML)
	opts := &watchOptions{
		IDField:     "id",
		TTL:         time.Hour,
		Interval:    10 * time.Millisecond,
		MetricsAddr: ln.Addr().String(),
	}

	var out bytes.Buffer
	err = runWatch(context.Background(), &out, nil, opts, fixture)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Empty(t, out.String())
}

func TestWatchOptions_StoreConfig(t *testing.T) {
	opts := &watchOptions{TTL: time.Minute, Interval: time.Second, MetricsAddr: ":0"}
	config, err := opts.storeConfig()
	require.NoError(t, err)
	assert.Equal(t, store.TypeExpiringSynchronized, config.Type)
	assert.True(t, config.Metrics.Enabled)

	path := writeFixture(t, "store.yaml", "type: memory\n")
	opts = &watchOptions{ConfigPath: path, Interval: time.Second}
	_, err = opts.storeConfig()
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	opts = &watchOptions{TTL: 0, Interval: time.Second}
	_, err = opts.storeConfig()
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestParseIndexSpec(t *testing.T) {
	spec, err := parseIndexSpec("surname=last,ci,max:age,newest:2")
	require.NoError(t, err)
	assert.Equal(t, "surname", spec.name)
	assert.Equal(t, "last", spec.field)
	assert.True(t, spec.ignoreCase)
	assert.Len(t, spec.reducers, 2)

	spec, err = parseIndexSpec("city")
	require.NoError(t, err)
	assert.Equal(t, "city", spec.name)
	assert.Equal(t, "city", spec.field)

	for _, raw := range []string{"=city", "name=", "city,max", "city,min:"} {
		_, err := parseIndexSpec(raw)
		assert.ErrorIs(t, err, errors.ErrInvalidData, raw)
	}
}

func TestParseQuery(t *testing.T) {
	q, names, err := parseQuery("last=Doe & tags~dev | age = 21")
	require.NoError(t, err)
	assert.Equal(t, []string{"last", "tags", "age"}, names)

	sections := q.Sections()
	require.Len(t, sections, 2)
	assert.Len(t, sections[0].Parts(), 2)
	assert.Equal(t, "21", sections[1].Parts()[0].Key)
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "members", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, appName, entry["app"])
	assert.Equal(t, float64(3), entry["members"])

	buf.Reset()
	setupLogger(&buf, "debug", "text").Debug("detail")
	assert.Contains(t, buf.String(), "msg=detail")
}
