// Package asset implements the Asset Broker (§4.9): craft, screenshot, and
// flag upload/download/list/delete over the Storage Adapter, with
// per-kind rate limits, content-addressed hashing, and a per-user,
// per-kind item-count quota enforced by FIFO eviction.
package asset

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/time/rate"
	"lukechampine.com/blake3"

	"lunamatch/internal/logging"
	"lunamatch/internal/protocol"
)

// Kind enumerates the three asset kinds named in §3/§4.9.
type Kind string

const (
	KindCraft      Kind = "craft"
	KindScreenshot Kind = "screenshot"
	KindFlag       Kind = "flag"
)

// per-kind rate-limit intervals (§4.9).
var kindInterval = map[Kind]time.Duration{
	KindCraft:      5 * time.Second,
	KindScreenshot: 15 * time.Second,
	KindFlag:       0, // no per-user rate limit
}

var flagNamePattern = regexp.MustCompile(`^[-_a-zA-Z0-9/]+$`)

// Item is one stored asset (the Storage Adapter value).
type Item struct {
	Kind      Kind   `json:"kind"`
	Folder    string `json:"folder"`
	Key       string `json:"key"`
	Owner     string `json:"owner"`
	Data      []byte `json:"data"`
	Thumbnail []byte `json:"thumbnail,omitempty"`
	Hash      string `json:"hash"`
	NumBytes  int    `json:"num_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Store is the narrow slice of the Storage Adapter the broker needs.
type Store interface {
	Put(collection, key string, value any) error
	Get(collection, key string, dst any) (bool, error)
	Delete(collection, key string) error
	List(collection string) ([]string, error)
}

// Quota bounds a single user's footprint (§4.9).
type Quota struct {
	MaxItemsPerKindPerUser int
	MaxFolders             int
}

// Broker wires rate limiting, content hashing, and quota enforcement around
// a Storage Adapter collection per kind.
type Broker struct {
	store    Store
	quota    Quota
	limiters map[string]*rate.Limiter // (kind:owner) -> limiter
	logger   *logging.Logger
}

// New constructs a Broker.
func New(store Store, quota Quota, logger *logging.Logger) *Broker {
	return &Broker{store: store, quota: quota, limiters: make(map[string]*rate.Limiter), logger: logger}
}

func collectionFor(kind Kind) string {
	switch kind {
	case KindCraft:
		return "crafts"
	case KindScreenshot:
		return "screenshots"
	case KindFlag:
		return "flags"
	default:
		return "assets"
	}
}

func (b *Broker) limiter(kind Kind, owner string) *rate.Limiter {
	interval := kindInterval[kind]
	if interval <= 0 {
		return nil
	}
	id := string(kind) + ":" + owner
	l, ok := b.limiters[id]
	if !ok {
		l = rate.NewLimiter(rate.Every(interval), 1)
		b.limiters[id] = l
	}
	return l
}

func storageKey(folder, key string) string {
	return folder + "/" + key
}

// contentHash fingerprints the asset bytes for dedup/debug bookkeeping
// (grounded on the teacher's hashBLAKE3).
func contentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// compressBlob shrinks asset payloads before they hit the Storage Adapter.
func compressBlob(raw []byte) []byte {
	dst := make([]byte, lz4.CompressBlockBound(len(raw)))
	var compressor lz4.Compressor
	n, err := compressor.CompressBlock(raw, dst)
	if err != nil || n == 0 {
		return raw
	}
	return dst[:n]
}

// Upload validates the rate limit and name rules for a kind, then stores
// the item (§4.9's upload sub-operation).
func (b *Broker) Upload(kind Kind, owner, folder, key string, data, thumbnail []byte) protocol.Result {
	if kind == KindFlag && !flagNamePattern.MatchString(key) {
		return protocol.Of(protocol.Protocol, "invalid_flag_name")
	}
	if l := b.limiter(kind, owner); l != nil && !l.Allow() {
		return protocol.Of(protocol.RateLimited, string(kind)+"_rate_limit")
	}

	if result := b.enforceQuota(kind, owner); result.Outcome != protocol.OK {
		return result
	}

	item := Item{
		Kind:       kind,
		Folder:     folder,
		Key:        key,
		Owner:      owner,
		Data:       compressBlob(data),
		Thumbnail:  thumbnail,
		Hash:       contentHash(data),
		NumBytes:   len(data),
		UploadedAt: time.Now(),
	}
	if err := b.store.Put(collectionFor(kind), storageKey(folder, key), item); err != nil {
		if b.logger != nil {
			b.logger.Error("asset: upload persistence failed", logging.Error(err))
		}
		return protocol.Of(protocol.Persistence, "upload_failed")
	}
	if b.logger != nil {
		b.logger.Info("asset: uploaded", logging.String("kind", string(kind)), logging.String("key", key), logging.Int64("bytes", int64(len(data))))
	}
	b.enforceFolderQuota(owner)
	return protocol.Ok()
}

// enforceQuota evicts the owner's oldest items (FIFO by upload order) in
// this kind's collection until the per-kind-per-user cap is satisfied
// (DESIGN.md Open Question #3: the quota counts items, not bytes).
func (b *Broker) enforceQuota(kind Kind, owner string) protocol.Result {
	collection := collectionFor(kind)
	keys, err := b.store.List(collection)
	if err != nil {
		return protocol.Of(protocol.Persistence, "quota_check_failed")
	}

	var owned []string
	var totalBytes int64
	for _, k := range keys {
		var item Item
		found, err := b.store.Get(collection, k, &item)
		if err != nil || !found || item.Owner != owner {
			continue
		}
		owned = append(owned, k)
		totalBytes += int64(item.NumBytes)
	}

	limit := b.quota.MaxItemsPerKindPerUser
	if limit <= 0 || len(owned) < limit {
		return protocol.Ok()
	}

	evictCount := len(owned) - limit + 1
	for i := 0; i < evictCount; i++ {
		b.store.Delete(collection, owned[i])
	}
	if b.logger != nil {
		b.logger.Warn("asset: evicted oldest items over quota",
			logging.String("kind", string(kind)),
			logging.String("owner", owner),
			logging.Int64("evicted", int64(evictCount)),
			logging.String("bytes_before_eviction", humanize.Bytes(uint64(totalBytes))))
	}
	return protocol.Ok()
}

// folderMTime tracks the newest upload seen in one owner's folder, across
// all kinds, for the global folder quota's FIFO-by-mtime eviction.
type folderMTime struct {
	kind   Kind
	folder string
	mtime  time.Time
}

// enforceFolderQuota evicts the owner's least-recently-touched folders,
// across all kinds, once the distinct-folder count exceeds MaxFolders
// (§4.9: "at most max_folders folders across all kinds, global FIFO
// eviction by oldest mtime").
func (b *Broker) enforceFolderQuota(owner string) {
	limit := b.quota.MaxFolders
	if limit <= 0 {
		return
	}

	folders := make(map[string]*folderMTime)
	for _, kind := range []Kind{KindCraft, KindScreenshot, KindFlag} {
		collection := collectionFor(kind)
		keys, err := b.store.List(collection)
		if err != nil {
			return
		}
		for _, k := range keys {
			var item Item
			found, err := b.store.Get(collection, k, &item)
			if err != nil || !found || item.Owner != owner {
				continue
			}
			id := string(kind) + ":" + item.Folder
			info, ok := folders[id]
			if !ok {
				info = &folderMTime{kind: kind, folder: item.Folder}
				folders[id] = info
			}
			if item.UploadedAt.After(info.mtime) {
				info.mtime = item.UploadedAt
			}
		}
	}

	if len(folders) <= limit {
		return
	}

	ordered := make([]*folderMTime, 0, len(folders))
	for _, info := range folders {
		ordered = append(ordered, info)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].mtime.Before(ordered[j].mtime) })

	evictCount := len(folders) - limit
	for i := 0; i < evictCount; i++ {
		b.deleteFolder(ordered[i].kind, owner, ordered[i].folder)
		if b.logger != nil {
			b.logger.Warn("asset: evicted oldest folder over max_folders quota",
				logging.String("kind", string(ordered[i].kind)),
				logging.String("owner", owner),
				logging.String("folder", ordered[i].folder))
		}
	}
}

// deleteFolder removes every item an owner holds within one kind's folder.
func (b *Broker) deleteFolder(kind Kind, owner, folder string) {
	collection := collectionFor(kind)
	keys, err := b.store.List(collection)
	if err != nil {
		return
	}
	prefix := folder + "/"
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		var item Item
		found, err := b.store.Get(collection, k, &item)
		if err != nil || !found || item.Owner != owner {
			continue
		}
		b.store.Delete(collection, k)
	}
}

// DownloadRequest fetches one stored item for a unicast response (§4.9).
func (b *Broker) DownloadRequest(kind Kind, folder, key string) (Item, protocol.Result) {
	var item Item
	found, err := b.store.Get(collectionFor(kind), storageKey(folder, key), &item)
	if err != nil {
		return Item{}, protocol.Of(protocol.Persistence, "download_failed")
	}
	if !found {
		return Item{}, protocol.Of(protocol.NotFound, "asset_missing")
	}
	return item, protocol.Ok()
}

// ListFolders returns the distinct folder names present in a kind's
// collection (§4.9 list_folders, unicast).
func (b *Broker) ListFolders(kind Kind) ([]string, protocol.Result) {
	keys, err := b.store.List(collectionFor(kind))
	if err != nil {
		return nil, protocol.Of(protocol.Persistence, "list_failed")
	}
	seen := make(map[string]struct{})
	var folders []string
	for _, k := range keys {
		folder := folderOf(k)
		if _, ok := seen[folder]; ok {
			continue
		}
		seen[folder] = struct{}{}
		folders = append(folders, folder)
	}
	return folders, protocol.Ok()
}

// ListItems returns every key within one folder (§4.9 list_items, unicast).
func (b *Broker) ListItems(kind Kind, folder string) ([]string, protocol.Result) {
	keys, err := b.store.List(collectionFor(kind))
	if err != nil {
		return nil, protocol.Of(protocol.Persistence, "list_failed")
	}
	var items []string
	prefix := folder + "/"
	for _, k := range keys {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			items = append(items, k[len(prefix):])
		}
	}
	return items, protocol.Ok()
}

func folderOf(storageKey string) string {
	for i := 0; i < len(storageKey); i++ {
		if storageKey[i] == '/' {
			return storageKey[:i]
		}
	}
	return storageKey
}

// Delete removes an asset; owner-only (§4.9).
func (b *Broker) Delete(kind Kind, requester, owner, folder, key string) protocol.Result {
	if requester != owner {
		return protocol.Of(protocol.Authorization, "not_owner")
	}
	if err := b.store.Delete(collectionFor(kind), storageKey(folder, key)); err != nil {
		return protocol.Of(protocol.Persistence, "delete_failed")
	}
	return protocol.Ok()
}
