package match

// Label is the public discovery summary (§6: "match label"). The httpapi
// discovery RPC serves this directly; it never exposes Match State.
type Label struct {
	MatchID     string `json:"match_id"`
	ServerName  string `json:"server_name"`
	Description string `json:"description"`
	Mode        string `json:"mode"`
	Warp        string `json:"warp"`
	Password    bool   `json:"password"`
	Version     string `json:"version"`
	Region      string `json:"region"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	MaxPlayers  int    `json:"max_players"`
	Players     int    `json:"players"`
	Status      string `json:"status"`
}

// Label assembles the current discovery summary for this match and
// publishes it through the Dispatcher so late joiners to the discovery RPC
// see the same view connected clients get over SETTINGS (§4.2 LabelUpdate).
func (r *Runner) Label() Label {
	snapshot := r.session.Snapshot()
	status := "running"
	if r.Degraded() {
		status = "degraded"
	}
	label := Label{
		MatchID:     r.ID(),
		ServerName:  r.setup.ServerName,
		Description: r.setup.Description,
		Mode:        r.setup.GameMode,
		Warp:        string(r.Warp.Mode()),
		Password:    r.setup.Password != "",
		Version:     r.setup.Version,
		Region:      r.setup.Region,
		Host:        r.setup.Host,
		Port:        r.setup.Port,
		MaxPlayers:  snapshot.Capacity.MaxPlayers,
		Players:     r.World.Players.Count(),
		Status:      status,
	}
	if r.Dispatch != nil {
		r.Dispatch.LabelUpdate(label)
	}
	return label
}
