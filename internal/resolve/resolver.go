package resolve

import (
	"fmt"
	"math"

	"facetrace/internal/detect"
	"facetrace/internal/models"
)

// Roster is the resolver's working view of known identities. In embedding
// mode it is seeded from the persistent person store and shared-by-value
// semantics keep resolution a pure function: Resolve never mutates the
// roster, the caller applies the returned Resolution with Apply.
type Roster struct {
	people  []*models.Person
	byID    map[string]*models.Person
	byTrack map[int]string
}

func NewRoster(people []*models.Person) *Roster {
	r := &Roster{
		byID:    make(map[string]*models.Person),
		byTrack: make(map[int]string),
	}
	for _, p := range people {
		r.people = append(r.people, p)
		r.byID[p.ID] = p
	}
	return r
}

func (r *Roster) Size() int {
	return len(r.people)
}

func (r *Roster) Person(id string) *models.Person {
	return r.byID[id]
}

// Resolution describes how a candidate mapped to an identity, including
// the roster mutation to apply. Keeping the mutation explicit makes the
// resolver's effect observable and testable.
type Resolution struct {
	PersonID   string
	PersonName string
	// NewPerson is set when the candidate minted a new identity.
	NewPerson *models.Person
	// EnrichWith is set when the candidate's embedding should be added to
	// an existing person's reference set.
	EnrichWith []float64
	// BindTrackID is set in track mode when a newly seen track id should
	// map to the resolved person for the rest of the video.
	BindTrackID *int
}

// Apply folds a resolution into the roster. The caller is responsible for
// mirroring the same mutation into the persistent person store.
func (r *Roster) Apply(res Resolution) {
	if res.NewPerson != nil {
		r.people = append(r.people, res.NewPerson)
		r.byID[res.NewPerson.ID] = res.NewPerson
	}
	if res.BindTrackID != nil {
		r.byTrack[*res.BindTrackID] = res.PersonID
	}
	if res.NewPerson != nil {
		return
	}
	if res.EnrichWith != nil {
		if p := r.byID[res.PersonID]; p != nil {
			p.Embeddings = append(p.Embeddings, res.EnrichWith)
		}
	}
}

// Resolver maps filtered candidates to stable identities.
type Resolver struct {
	mode detect.Mode
	// threshold is the maximum Euclidean distance for an embedding match.
	threshold float64
	// maxEmbeddings bounds each person's reference set; enrichment keeps
	// the first N embeddings seen and drops the rest.
	maxEmbeddings int
}

func NewResolver(mode detect.Mode, threshold float64, maxEmbeddings int) *Resolver {
	return &Resolver{
		mode:          mode,
		threshold:     threshold,
		maxEmbeddings: maxEmbeddings,
	}
}

// Resolve maps one candidate to an identity given the current roster. Pure:
// the same candidate and roster state always produce the same resolution.
func (r *Resolver) Resolve(c detect.Candidate, roster *Roster) (Resolution, error) {
	switch r.mode {
	case detect.ModeEmbedding:
		return r.resolveEmbedding(c, roster)
	case detect.ModeTrack:
		return r.resolveTrack(c, roster)
	default:
		return Resolution{}, fmt.Errorf("unknown resolver mode: %s", r.mode)
	}
}

func (r *Resolver) resolveEmbedding(c detect.Candidate, roster *Roster) (Resolution, error) {
	if c.Embedding == nil {
		return Resolution{}, fmt.Errorf("embedding mode candidate carries no embedding")
	}

	bestID := ""
	bestName := ""
	bestDist := math.Inf(1)
	var bestCount int

	for _, person := range roster.people {
		for _, ref := range person.Embeddings {
			dist, err := euclideanDistance(c.Embedding, ref)
			if err != nil {
				return Resolution{}, err
			}
			// Ties resolve to the lexicographically smaller person id so
			// results are reproducible regardless of roster order.
			if dist < bestDist || (dist == bestDist && person.ID < bestID) {
				bestDist = dist
				bestID = person.ID
				bestName = person.Name
				bestCount = len(person.Embeddings)
			}
		}
	}

	if bestID != "" && bestDist <= r.threshold {
		res := Resolution{PersonID: bestID, PersonName: bestName}
		if r.maxEmbeddings <= 0 || bestCount < r.maxEmbeddings {
			res.EnrichWith = c.Embedding
		}
		return res, nil
	}

	person := models.NewPerson(fmt.Sprintf("Person %d", roster.Size()+1), c.Embedding)
	return Resolution{
		PersonID:   person.ID,
		PersonName: person.Name,
		NewPerson:  person,
	}, nil
}

func (r *Resolver) resolveTrack(c detect.Candidate, roster *Roster) (Resolution, error) {
	if c.TrackID == nil {
		return Resolution{}, fmt.Errorf("track mode candidate carries no track id")
	}

	if personID, ok := roster.byTrack[*c.TrackID]; ok {
		person := roster.byID[personID]
		if person == nil {
			return Resolution{}, fmt.Errorf("track %d maps to unknown person %s", *c.TrackID, personID)
		}
		return Resolution{PersonID: person.ID, PersonName: person.Name}, nil
	}

	person := models.NewPerson(fmt.Sprintf("Person %d", roster.Size()+1), nil)
	return Resolution{
		PersonID:    person.ID,
		PersonName:  person.Name,
		NewPerson:   person,
		BindTrackID: c.TrackID,
	}, nil
}

func euclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
