//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startContainer starts a container and returns host:port of the exposed port.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) (string, string) {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return host, mapped.Port()
}

// exerciseBackends runs the admin and ranking commands against one environment.
func exerciseBackends(t *testing.T, env []string, withHistory bool) {
	request := writeRequestFile(t)

	_, err := runPlacewise(t, env, "cache", "clear")
	require.NoError(t, err)
	if withHistory {
		_, err = runPlacewise(t, env, "history", "migrate")
		require.NoError(t, err)
	}

	out, err := runPlacewise(t, env, "rank", "--input", request, "--explain", "--output", "json")
	require.NoError(t, err)
	var res struct {
		Recommendations []struct {
			AreaCode       string  `json:"area_code"`
			Rank           int     `json:"rank"`
			CompositeScore float64 `json:"composite_score"`
		} `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(out, &res))
	require.NotEmpty(t, res.Recommendations)
	top := res.Recommendations[0].AreaCode
	explanationKey := fmt.Sprintf("%s_parent_medium_%d_%.1f", top, res.Recommendations[0].Rank, res.Recommendations[0].CompositeScore)

	out, err = runPlacewise(t, env, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, string(out), "Connected: true")

	// The template explainer caches one entry per explained candidate
	out, err = runPlacewise(t, env, "cache", "get", "explanation", explanationKey)
	require.NoError(t, err)
	assert.Contains(t, string(out), top)

	out, err = runPlacewise(t, env, "cache", "sweep", "--days", "0")
	require.NoError(t, err)
	assert.Contains(t, string(out), "Removed")

	if withHistory {
		out, err = runPlacewise(t, env, "history", "status")
		require.NoError(t, err)
		assert.Contains(t, string(out), "Total Runs: 1")

		_, err = runPlacewise(t, env, "history", "clear")
		require.NoError(t, err)
	}
}

// TestPlacewiseWithMySQL tests the placewise CLI with a MySQL backend.
func TestPlacewiseWithMySQL(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "placewise",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}, "3306")

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/placewise?parseTime=true", host, port)
	exerciseBackends(t, []string{
		"PLACEWISE_CACHE_BACKEND=mysql",
		"PLACEWISE_CACHE_DB_CONNECT=" + connStr,
		"PLACEWISE_HISTORY_BACKEND=mysql",
		"PLACEWISE_HISTORY_DB_CONNECT=" + connStr,
	}, true)
}

// TestPlacewiseWithPostgres tests the placewise CLI with a PostgreSQL backend.
func TestPlacewiseWithPostgres(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}, "5432")

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port)
	exerciseBackends(t, []string{
		"PLACEWISE_CACHE_BACKEND=postgresql",
		"PLACEWISE_CACHE_DB_CONNECT=" + connStr,
		"PLACEWISE_HISTORY_BACKEND=postgresql",
		"PLACEWISE_HISTORY_DB_CONNECT=" + connStr,
	}, true)
}

// TestPlacewiseWithRedis tests the placewise CLI with a Redis cache.
func TestPlacewiseWithRedis(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, "6379")

	exerciseBackends(t, []string{
		"PLACEWISE_CACHE_BACKEND=redis",
		fmt.Sprintf("PLACEWISE_CACHE_DB_CONNECT=redis://%s:%s/0", host, port),
	}, false)
}
