package main

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

func handleIndex(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(r.URL.Path, "/")
	if name == "" {
		// The form on the index page submits ?user=<name>.
		if user := r.URL.Query().Get("user"); user != "" {
			http.Redirect(w, r, "/"+url.PathEscape(user), http.StatusFound)
			return
		}
		session, _ := store.Get(r, sessionName)
		last, _ := session.Values["username"].(string)
		executeTemplate(w, "index.html", IndexPageData{Title: "Boardgame statistics", LastUsername: last})
		return
	}
	if strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}
	renderFullStatistics(w, r, name)
}

func renderFullStatistics(w http.ResponseWriter, r *http.Request, name string) {
	stats, err := svc.FullStats(r.Context(), name)
	if err != nil {
		renderStatsError(w, r, name, err)
		return
	}

	session, _ := store.Get(r, sessionName)
	session.Values["username"] = name
	if err := session.Save(r, w); err != nil {
		slog.WarnContext(r.Context(), "saving session failed", "err", err)
	}

	slog.DebugContext(r.Context(), "latest games played", "username", name, "count", len(stats.Games))

	executeTemplate(w, "full_statistics.html", StatsPageData{
		Title:      name + " - Boardgame statistics",
		Username:   name,
		Games:      stats.Games,
		Coop:       stats.Coop,
		MostPlayed: stats.MostPlayed,
	})
}

func handleLatestGames(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("user")
	if name == "" {
		http.Error(w, "missing user parameter", http.StatusBadRequest)
		return
	}

	stats, err := svc.FullStats(r.Context(), name)
	if err != nil {
		renderStatsError(w, r, name, err)
		return
	}

	slog.DebugContext(r.Context(), "latest games played", "username", name, "count", len(stats.Games))
	executeTemplate(w, "game_list.html", GameListPartialData{Games: stats.Games})
}

func handleStatistics(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("user")
	if name == "" {
		http.Error(w, "missing user parameter", http.StatusBadRequest)
		return
	}

	stats, err := svc.FullStats(r.Context(), name)
	if err != nil {
		renderStatsError(w, r, name, err)
		return
	}

	slog.DebugContext(r.Context(), "coop statistics", "username", name,
		"wins", stats.Coop.Wins, "losses", stats.Coop.Losses)
	slog.DebugContext(r.Context(), "most played game", "username", name,
		"game", stats.MostPlayed.Name, "minutes", stats.MostPlayed.Minutes)

	executeTemplate(w, "statistics.html", StatsPartialData{
		Coop:       stats.Coop,
		MostPlayed: stats.MostPlayed,
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func renderStatsError(w http.ResponseWriter, r *http.Request, name string, err error) {
	slog.ErrorContext(r.Context(), "fetching statistics failed", "username", name, "err", err)

	msg := "Fetching statistics for " + name + " failed. Try again in a moment."
	status := http.StatusBadGateway
	if errors.Is(err, ErrNoPlays) {
		msg = "No logged plays found for " + name + "."
		status = http.StatusNotFound
	}

	w.WriteHeader(status)
	executeTemplate(w, "error.html", ErrorPageData{Title: "Error", Message: msg})
}

func executeTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	if err := tpl.ExecuteTemplate(w, templateName, data); err != nil {
		slog.Error("template execution error", "template", templateName, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
