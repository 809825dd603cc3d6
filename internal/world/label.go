package world

// Label is the public discovery summary published on every Join/Leave and
// whenever label_update is requested by the Dispatcher (§4.2, §6, §8
// property 10).
type Label struct {
	ServerName      string `json:"server_name"`
	Description     string `json:"description"`
	Mode            string `json:"mode"`
	Warp            string `json:"warp"`
	PasswordSet     bool   `json:"password"`
	Version         string `json:"version"`
	Region          string `json:"region"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	MaxPlayers      int    `json:"max_players"`
	Players         int    `json:"players"`
	Status          string `json:"status"`
	Degraded        bool   `json:"degraded,omitempty"`
}
