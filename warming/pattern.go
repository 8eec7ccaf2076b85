/*
Package warming implements predictive cache warming: PatternAnalyzer
records how keys are actually accessed (temporal histograms, sequential
co-access, per-user affinity) and turns that history into ranked
predictions; Warmer acts on those predictions by pre-loading keys through
an injected Loader before they are ever requested.
*/
package warming

import (
	"sort"
	"sync"
	"time"

	"github.com/promptvault/cache"
)

// Prediction is one candidate key to pre-warm. Score is the blended
// temporal/sequential/user-affinity share in [0, 1]; Confidence is a
// separate statistical-trust measure, min(1, sample_count/min_samples),
// so a key seen only once or twice never looks as trustworthy as one
// with a deep history even if its Score happens to be high.
type Prediction struct {
	Key        string
	Score      float64
	Confidence float64
	Reason     string // "temporal" | "sequential" | "user_affinity"
}

type keyRecord struct {
	hourHistogram    [24]uint32
	weekdayHistogram [7]uint32
	totalAccesses    uint64
	followedBy       map[string]uint32 // keys observed to follow this one, for sequential prediction
	users            map[string]uint32
	lastSeen         time.Time
}

/*
PatternAnalyzer maintains a bounded per-key access history and derives
predictions from three signals:

  - temporal: which hour-of-day and which weekday a key is usually
    accessed on
  - sequential: which key tends to follow another within the same session
  - user affinity: which users repeatedly touch the same key

History for the least-recently-updated keys is evicted once the table
exceeds capacity, exactly like multitier's temperature table.
*/
type PatternAnalyzer struct {
	mu         sync.Mutex
	records    map[string]*keyRecord
	order      []string
	capacity   int
	minSamples int
	clock      cache.Clock

	lastKey       string            // fallback sequential chain when RecordAccess is called with no user
	lastKeyByUser map[string]string // per-user previous key, so interleaved sessions don't cross-link
}

// NewPatternAnalyzer builds a PatternAnalyzer. minSamples is the sample
// count (per-key total accesses) at which a Prediction's Confidence
// saturates at 1.0; fewer samples scale it down proportionally.
func NewPatternAnalyzer(capacity, minSamples int, clock cache.Clock) *PatternAnalyzer {
	if capacity <= 0 {
		capacity = 10000
	}
	if minSamples <= 0 {
		minSamples = 10
	}
	if clock == nil {
		clock = cache.SystemClock{}
	}
	return &PatternAnalyzer{
		records:       make(map[string]*keyRecord),
		capacity:      capacity,
		minSamples:    minSamples,
		clock:         clock,
		lastKeyByUser: make(map[string]string),
	}
}

// RecordAccess logs one access to key by user (user may be empty when the
// caller has no per-user context). Sequential co-access is tracked per
// user: two users whose accesses interleave never cross-link each
// other's sequences. Accesses with no user fall back to a single global
// chain, same as before per-user tracking existed.
func (p *PatternAnalyzer) RecordAccess(key, user string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	rec, ok := p.records[key]
	if !ok {
		if p.capacity > 0 && len(p.records) >= p.capacity {
			p.evictOldest()
		}
		rec = &keyRecord{followedBy: make(map[string]uint32), users: make(map[string]uint32)}
		p.records[key] = rec
		p.order = append(p.order, key)
	} else {
		p.touchOrder(key)
	}

	rec.hourHistogram[now.Hour()]++
	rec.weekdayHistogram[int(now.Weekday())]++
	rec.totalAccesses++
	rec.lastSeen = now
	if user != "" {
		rec.users[user]++
	}

	var prevKey string
	var hadPrev bool
	if user != "" {
		prevKey, hadPrev = p.lastKeyByUser[user]
	} else {
		prevKey, hadPrev = p.lastKey, p.lastKey != ""
	}
	if hadPrev && prevKey != key {
		if prev, ok := p.records[prevKey]; ok {
			prev.followedBy[key]++
		}
	}
	if user != "" {
		p.lastKeyByUser[user] = key
	} else {
		p.lastKey = key
	}
}

// PredictionContext carries the situational signals GeneratePredictions
// blends together: the instant to score temporal buckets against, the
// most recently accessed key (feeding the sequential signal), and an
// optional user id (feeding the user-affinity signal). Named
// PredictionContext rather than Context since Warmer also imports the
// standard context package for cancellation.
type PredictionContext struct {
	Now      time.Time
	AfterKey string
	UserID   string
}

// GeneratePredictions blends three signals into one ranked list:
//
//   - temporal: a key's share of the busiest key's access count in the
//     same hour-of-day and weekday buckets
//   - sequential: when AfterKey is set, the share of AfterKey's
//     accesses that were followed by this key (mirrors PredictNext)
//   - user affinity: when UserID is set, the share of a key's own
//     accesses attributable to that user, for keys they've touched
//     more than once (mirrors UserAffinity)
//
// Each candidate's Reason reflects whichever signal contributed most to
// its Score. Confidence is independent of Score: min(1,
// sample_count/min_samples) using the key's own total access count.
func (p *PatternAnalyzer) GeneratePredictions(ctx PredictionContext, n int) []Prediction {
	p.mu.Lock()
	defer p.mu.Unlock()

	hour := ctx.Now.Hour()
	weekday := int(ctx.Now.Weekday())

	var maxHour, maxWeekday uint32
	for _, rec := range p.records {
		if rec.hourHistogram[hour] > maxHour {
			maxHour = rec.hourHistogram[hour]
		}
		if rec.weekdayHistogram[weekday] > maxWeekday {
			maxWeekday = rec.weekdayHistogram[weekday]
		}
	}

	var afterRec *keyRecord
	if ctx.AfterKey != "" {
		afterRec = p.records[ctx.AfterKey]
	}

	preds := make([]Prediction, 0, len(p.records))
	for key, rec := range p.records {
		if key == ctx.AfterKey {
			continue
		}

		var temporal float64
		if maxHour > 0 || maxWeekday > 0 {
			var hourShare, weekdayShare float64
			if maxHour > 0 {
				hourShare = float64(rec.hourHistogram[hour]) / float64(maxHour)
			}
			if maxWeekday > 0 {
				weekdayShare = float64(rec.weekdayHistogram[weekday]) / float64(maxWeekday)
			}
			temporal = (hourShare + weekdayShare) / 2
		}

		var sequential float64
		if afterRec != nil && afterRec.totalAccesses > 0 {
			sequential = float64(afterRec.followedBy[key]) / float64(afterRec.totalAccesses)
		}

		var affinity float64
		if ctx.UserID != "" && rec.users[ctx.UserID] > 1 {
			affinity = float64(rec.users[ctx.UserID]) / float64(rec.totalAccesses)
		}

		wTemporal, wSequential, wAffinity := 1.0, 0.0, 0.0
		if afterRec != nil {
			wSequential = 1.0
		}
		if ctx.UserID != "" {
			wAffinity = 1.0
		}
		totalWeight := wTemporal + wSequential + wAffinity

		score := (wTemporal*temporal + wSequential*sequential + wAffinity*affinity) / totalWeight
		if score <= 0 {
			continue
		}

		reason := "temporal"
		strongest := wTemporal * temporal
		if wSequential*sequential > strongest {
			reason, strongest = "sequential", wSequential*sequential
		}
		if wAffinity*affinity > strongest {
			reason = "user_affinity"
		}

		confidence := float64(rec.totalAccesses) / float64(p.minSamples)
		if confidence > 1 {
			confidence = 1
		}

		preds = append(preds, Prediction{Key: key, Score: score, Confidence: confidence, Reason: reason})
	}

	sort.Slice(preds, func(i, j int) bool {
		if preds[i].Score != preds[j].Score {
			return preds[i].Score > preds[j].Score
		}
		return preds[i].Key < preds[j].Key
	})
	if n > 0 && len(preds) > n {
		preds = preds[:n]
	}
	return preds
}

// PredictNext ranks keys observed to follow afterKey by how often they did
// so, relative to afterKey's total access count, and returns the top n.
// Kept as a standalone query for callers who only have a predecessor key
// and no full PredictionContext; GeneratePredictions folds the same
// signal in when given ctx.AfterKey.
func (p *PatternAnalyzer) PredictNext(afterKey string, n int) []Prediction {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.records[afterKey]
	if !ok || rec.totalAccesses == 0 {
		return nil
	}

	preds := make([]Prediction, 0, len(rec.followedBy))
	for key, count := range rec.followedBy {
		score := float64(count) / float64(rec.totalAccesses)
		confidence := score
		if target, ok := p.records[key]; ok {
			confidence = float64(target.totalAccesses) / float64(p.minSamples)
			if confidence > 1 {
				confidence = 1
			}
		}
		preds = append(preds, Prediction{Key: key, Score: score, Confidence: confidence, Reason: "sequential"})
	}

	sort.Slice(preds, func(i, j int) bool {
		if preds[i].Score != preds[j].Score {
			return preds[i].Score > preds[j].Score
		}
		return preds[i].Key < preds[j].Key
	})
	if n > 0 && len(preds) > n {
		preds = preds[:n]
	}
	return preds
}

// UserAffinity returns the set of users who have repeatedly (more than
// once) accessed key, for affinity-based warming of a specific user's
// session.
func (p *PatternAnalyzer) UserAffinity(key string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[key]
	if !ok {
		return nil
	}
	var users []string
	for u, n := range rec.users {
		if n > 1 {
			users = append(users, u)
		}
	}
	return users
}

func (p *PatternAnalyzer) touchOrder(key string) {
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.order = append(p.order, key)
}

func (p *PatternAnalyzer) evictOldest() {
	if len(p.order) == 0 {
		return
	}
	oldest := p.order[0]
	p.order = p.order[1:]
	delete(p.records, oldest)
}

// Size reports how many keys currently have recorded history.
func (p *PatternAnalyzer) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}
