package main

// Page data structs

type IndexPageData struct {
	Title string
	// LastUsername is the username remembered in the session, if any.
	LastUsername string
}

type StatsPageData struct {
	Title      string
	Username   string
	Games      []GameSummary
	Coop       CoopStats
	MostPlayed MostPlayed
}

type GameListPartialData struct {
	Games []GameSummary
}

type StatsPartialData struct {
	Coop       CoopStats
	MostPlayed MostPlayed
}

type ErrorPageData struct {
	Title   string
	Message string
}
