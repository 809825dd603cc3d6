package codec

// Payload variants for the opcode table in §6. Fields mirror the wire
// shapes verbatim; server-internal types (world.Vessel, lock.Key, ...) are
// translated to/from these at the router boundary so the codec package has
// no dependency on Match State.

type ChatPayload struct {
	Message string `json:"message"`
	Channel string `json:"channel,omitempty"`
}

type PlayerStatusPayload struct {
	Status   string  `json:"status"`
	VesselID *string `json:"vessel_id,omitempty"`
	Body     *int    `json:"body,omitempty"`
}

type PlayerColorPayload struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

type Vector3Payload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type OrbitPayload struct {
	SemiMajorAxis       float64 `json:"semi_major_axis"`
	Eccentricity        float64 `json:"eccentricity"`
	Inclination         float64 `json:"inclination"`
	LAN                 float64 `json:"lan"`
	ArgumentOfPeriapsis float64 `json:"argument_of_periapsis"`
	MeanAnomalyAtEpoch  float64 `json:"mean_anomaly_at_epoch"`
}

type VesselProtoPayload struct {
	VesselID  string         `json:"vessel_id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Body      int            `json:"body"`
	Position  Vector3Payload `json:"position"`
	Rotation  Vector3Payload `json:"rotation"`
	Parts     []byte         `json:"parts,omitempty"`
	ProtoData []byte         `json:"proto_data,omitempty"`
}

type VesselUpdatePayload struct {
	VesselID        string         `json:"vessel_id"`
	Position        Vector3Payload `json:"position"`
	Rotation        Vector3Payload `json:"rotation"`
	Velocity        Vector3Payload `json:"velocity"`
	AngularVelocity Vector3Payload `json:"angular_velocity"`
	Orbit           OrbitPayload   `json:"orbit"`
}

type VesselRemovePayload struct {
	VesselID string `json:"vessel_id"`
}

type KerbalPayload struct {
	KerbalID   string  `json:"kerbal_id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	VesselID   *string `json:"vessel_id,omitempty"`
	Experience float64 `json:"experience"`
	Courage    float64 `json:"courage"`
	Stupidity  float64 `json:"stupidity"`
}

type AdminCommandPayload struct {
	Command string         `json:"command"`
	Args    map[string]any `json:"args,omitempty"`
}

type WarpPayload struct {
	Mode       *string  `json:"mode,omitempty"`
	Rate       *float64 `json:"rate,omitempty"`
	SubspaceID *int     `json:"subspace_id,omitempty"`
}

type LockPayload struct {
	Action     string  `json:"action"`
	LockType   string  `json:"lock_type"`
	VesselID   *string `json:"vessel_id,omitempty"`
	KerbalName *string `json:"kerbal_name,omitempty"`
	Owner      *string `json:"owner,omitempty"`
	Reason     *string `json:"reason,omitempty"`
}

type ShareProgressPayload struct {
	ScienceDelta    *float64 `json:"science_delta,omitempty"`
	FundsDelta      *float64 `json:"funds_delta,omitempty"`
	ReputationDelta *float64 `json:"reputation_delta,omitempty"`
}

type ScenarioPayload struct {
	Module string `json:"module"`
	Data   []byte `json:"data"`
}

type GroupPayload struct {
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
	Owner   string   `json:"owner,omitempty"`
}

type AssetUploadPayload struct {
	Folder    string `json:"folder"`
	Key       string `json:"key"`
	Data      []byte `json:"data"`
	Thumbnail []byte `json:"thumbnail,omitempty"`
}

type AssetDownloadRequestPayload struct {
	Folder string `json:"folder"`
	Key    string `json:"key"`
}

type AssetDownloadResponsePayload struct {
	Folder    string `json:"folder"`
	Key       string `json:"key"`
	Data      []byte `json:"data"`
	Thumbnail []byte `json:"thumbnail,omitempty"`
}

type AssetListFoldersPayload struct {
	Folders []string `json:"folders"`
}

type AssetListItemsPayload struct {
	Folder string   `json:"folder"`
	Items  []string `json:"items"`
}

type AssetDeletePayload struct {
	Folder string `json:"folder"`
	Key    string `json:"key"`
}

type AssetNotificationPayload struct {
	Kind   string `json:"kind"`
	Folder string `json:"folder"`
	Key    string `json:"key"`
	Action string `json:"action"` // "uploaded" | "deleted"
}

type SettingsPayload struct {
	Kind        string  `json:"kind"` // "server_info" | "time_sync" | "state_sync"
	UniverseTime float64 `json:"universe_time,omitempty"`
	TickRate    float64 `json:"tick_rate,omitempty"`
	Label       any     `json:"label,omitempty"`
}
