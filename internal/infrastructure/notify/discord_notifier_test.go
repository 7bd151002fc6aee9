package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servo98/express-invoices/internal/infrastructure/notify"
)

func TestSendReminder_PublicaContenido(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := notify.NewDiscordNotifier(srv.Client())
	require.NoError(t, n.SendReminder(context.Background(), srv.URL, "**Hey Ana!**"))
	assert.Equal(t, "**Hey Ana!**", got["content"])
}

func TestSendReminder_ErrorHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	err := notify.NewDiscordNotifier(srv.Client()).SendReminder(context.Background(), srv.URL, "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
