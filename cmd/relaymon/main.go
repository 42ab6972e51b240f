package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/sentrylink/relay/lib/env"
	"github.com/sentrylink/relay/lib/geoip"
	"github.com/sentrylink/relay/lib/logging"
	relay "github.com/sentrylink/relay/pkg"
)

var commitID string

func main() {
	env.Init()
	geoip.Init()
	logging.Init()
	defer logging.Close()
	logrus.SetLevel(logrus.DebugLevel)
	logrus.Debugln("Debug level enabled")

	jwt := os.Getenv("JWT")
	tenantID := os.Getenv("TENANT_ID")
	userEmail := os.Getenv("USER_EMAIL")
	if jwt == "" || tenantID == "" {
		logrus.Fatal("JWT and TENANT_ID required")
	}

	socketOrigin := env.SocketOrigin
	if os.Getenv("POD_IP") != "" {
		relay.InitK8S()
		addr, err := relay.GetHubTarget()
		if err != nil {
			logrus.Fatalf("no hub target %v", err)
		}
		socketOrigin = fmt.Sprintf("ws://%s:4567", addr)
	}

	sessions := relay.NewSessionContext()
	sessions.Set(relay.Session{Token: jwt, UserID: userEmail, TenantID: tenantID})

	api := relay.NewAPIClient(env.APIOrigin, sessions, func() {
		logrus.Warn("backend rejected credentials, closing all panels")
		closeAllPanels()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One always-on panel joined to the tenant room keeps the roster and
	// alert feeds current even when no agent panel is open.
	tenantPanel := relay.OpenPanel(ctx, sessions.Get(), relay.Config{
		Endpoint: socketOrigin,
		Token:    jwt,
		Room:     relay.TenantRoom(tenantID),
		TenantID: tenantID,
	}, "")

	go pollAgentStatus(ctx, api, tenantPanel, tenantID)
	for i := 0; i < uploadQueueCount(); i++ {
		go relay.RunUploadWorker(i)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/agents", relay.WithMetrics(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tenantPanel.Mux.Roster.Agents()); err != nil {
			logrus.Error(err)
		}
	}))
	mux.HandleFunc("/panels", relay.WithMetrics(listPanels))
	mux.HandleFunc("/panels/open", relay.WithMetrics(func(w http.ResponseWriter, r *http.Request) {
		openAgentPanel(ctx, sessions, socketOrigin, w, r)
	}))
	mux.HandleFunc("/panels/close", relay.WithMetrics(closePanel))

	logrus.Println("Serving on :4568")
	logrus.Println("commit id: " + commitID)

	s := &http.Server{
		Addr:           "0.0.0.0:4568",
		Handler:        mux,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Error(err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	closeAllPanels()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.Shutdown(shutdownCtx)
}

func uploadQueueCount() int {
	if v := os.Getenv("NUMBER_OF_UPLOAD_QUEUES"); v != "" {
		count, e := strconv.Atoi(v)
		if e != nil {
			logrus.Fatalf("bad NUMBER_OF_UPLOAD_QUEUES %v", e)
		}
		return count
	}
	return 1
}

// pollAgentStatus backfills the roster over REST. The hub pushes deltas;
// the poll covers agents that went quiet before this process started.
func pollAgentStatus(ctx context.Context, api *relay.APIClient, panel *relay.Panel, tenantID string) {
	tick := time.NewTicker(30 * time.Second)
	defer tick.Stop()
	for {
		updates, err := api.GetAgentStatus(tenantID)
		if err != nil {
			logrus.Errorf("agent status poll failed %v", err)
		}
		for _, update := range updates {
			panel.Mux.Roster.Upsert(update)
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func listPanels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	type panelRow struct {
		ID     string `json:"id"`
		Room   string `json:"room"`
		Status string `json:"status"`
	}

	relay.PanelStore.RLock()
	rows := make([]panelRow, 0, len(relay.PanelStore.Data))
	for id, data := range relay.PanelStore.Data {
		panel, ok := data.(*relay.Panel)
		if !ok {
			continue
		}
		rows = append(rows, panelRow{
			ID:     id,
			Room:   panel.Connection().Room(),
			Status: panel.Connection().Status().String(),
		})
	}
	relay.PanelStore.RUnlock()

	if err := json.NewEncoder(w).Encode(rows); err != nil {
		logrus.Error(err)
	}
}

func openAgentPanel(ctx context.Context, sessions *relay.SessionContext, socketOrigin string, w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	if agentID == "" {
		http.Error(w, "agentId required", http.StatusBadRequest)
		return
	}
	session := sessions.Get()
	if session.Token == "" {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	panel := relay.OpenPanel(ctx, session, relay.Config{
		Endpoint: socketOrigin,
		Token:    session.Token,
		Room:     agentID,
		TenantID: session.TenantID,
	}, agentID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"id": panel.ID})
}

func closePanel(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	data := relay.PanelStore.Get(id)
	panel, ok := data.(*relay.Panel)
	if !ok {
		http.Error(w, "panel not found", http.StatusNotFound)
		return
	}
	panel.Close()
	w.WriteHeader(http.StatusOK)
}

func closeAllPanels() {
	relay.PanelStore.RLock()
	panels := make([]*relay.Panel, 0, len(relay.PanelStore.Data))
	for _, data := range relay.PanelStore.Data {
		if panel, ok := data.(*relay.Panel); ok {
			panels = append(panels, panel)
		}
	}
	relay.PanelStore.RUnlock()
	for _, panel := range panels {
		panel.Close()
	}
}
