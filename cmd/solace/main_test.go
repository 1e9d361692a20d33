package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/internal/mocks"
	"solace/pkg/catalog"
	"solace/pkg/config"
	"solace/pkg/controller"
)

func TestOpenStoreMemorySeedsCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.StorageMemory

	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	ex, err := store.GetExercise(context.Background(), "grounding-anxious-moment")
	require.NoError(t, err)
	assert.Equal(t, "5-4-3-2-1 Grounding", ex.Title)
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "data", "solace.db")

	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	found, err := store.SearchExercises(context.Background(), catalog.Query{Topic: "sleep"})
	require.NoError(t, err)
	assert.NotEmpty(t, found)
}

func TestOpenStoreBadCatalogPath(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.StorageMemory
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := openStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRunChat(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.StorageMemory
	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)

	client := mocks.NewMockLLMClient()
	client.RespondWith("It's good to hear from you. How has today been?")
	ctrl := controller.New(store, client)

	in := strings.NewReader("hello\n\n/gate\n/quit\nnever sent\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), ctrl, "tester", in, &out))

	text := out.String()
	assert.Contains(t, text, "How has today been?")
	assert.Contains(t, text, "[CONVERSATIONAL_DISCOVERY]")
	assert.Contains(t, text, "gate: closed")
	assert.Equal(t, 1, client.GetCompleteCallCount())
}

func TestRunChatEOF(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.StorageMemory
	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), controller.New(store, mocks.NewMockLLMClient()), "tester", strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "started")
}

func TestWriteSecretsRejectsEmptyInput(t *testing.T) {
	err := writeSecrets(t.TempDir(), strings.NewReader("\n# nothing here\n"))
	assert.Error(t, err)
}

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(passwordEnv, "correct horse battery staple")

	require.NoError(t, writeSecrets(dir, strings.NewReader("ANTHROPIC_API_KEY=sk-test\n")))
	require.True(t, config.SecretsFileExists(dir))
	require.NoError(t, unlockSecrets(dir))
	t.Cleanup(func() { config.SetDecryptedSecrets(nil) })

	key, err := config.GetSecret("ANTHROPIC_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}
