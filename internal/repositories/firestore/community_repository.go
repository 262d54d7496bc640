package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/attaleem/api/internal/domain"
	pfirestore "github.com/attaleem/api/internal/platform/firestore"
	"github.com/attaleem/api/internal/repositories"
)

type communityDocument struct {
	OwnerID    string         `firestore:"ownerId"`
	OwnerName  string         `firestore:"ownerName"`
	Title      string         `firestore:"title"`
	Body       string         `firestore:"body"`
	Answer     string         `firestore:"answer"`
	Status     string         `firestore:"status"`
	Fields     map[string]any `firestore:"fields,omitempty"`
	Likes      []string       `firestore:"likes"`
	Bookmarks  []string       `firestore:"bookmarks"`
	Votes      []string       `firestore:"votes"`
	Answered   bool           `firestore:"answered"`
	AnsweredAt *time.Time     `firestore:"answeredAt,omitempty"`
	CreatedAt  time.Time      `firestore:"createdAt"`
	UpdatedAt  time.Time      `firestore:"updatedAt"`
}

// CommunityRepository stores community content in per-kind Firestore
// collections, so "questions" and "videos" documents live apart while sharing
// one record shape.
type CommunityRepository struct {
	provider *pfirestore.Provider
}

// NewCommunityRepository constructs a Firestore-backed community repository.
func NewCommunityRepository(provider *pfirestore.Provider) (*CommunityRepository, error) {
	if provider == nil {
		return nil, errors.New("community repository: firestore provider is required")
	}
	return &CommunityRepository{provider: provider}, nil
}

var communityCollections = map[domain.CommunityKind]struct{}{
	domain.KindInstitution: {},
	domain.KindVideo:       {},
	domain.KindQuestion:    {},
	domain.KindMasalah:     {},
	domain.KindEvent:       {},
	domain.KindReview:      {},
}

func (r *CommunityRepository) base(kind domain.CommunityKind) (*pfirestore.BaseRepository[communityDocument], error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("community repository not initialised")
	}
	if _, ok := communityCollections[kind]; !ok {
		return nil, fmt.Errorf("community repository: unknown kind %q", kind)
	}
	return pfirestore.NewBaseRepository[communityDocument](r.provider, string(kind), nil, nil), nil
}

// Insert stores a new community entry in its kind's collection.
func (r *CommunityRepository) Insert(ctx context.Context, entry domain.CommunityEntry) error {
	base, err := r.base(entry.Kind)
	if err != nil {
		return err
	}
	entryID := strings.TrimSpace(entry.ID)
	if entryID == "" {
		return errors.New("community repository: entry id is required")
	}
	docRef, err := base.DocumentRef(ctx, entryID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeCommunityDocument(entry)); err != nil {
		return pfirestore.WrapError(string(entry.Kind)+".insert", err)
	}
	return nil
}

// Update replaces the stored entry with the provided snapshot.
func (r *CommunityRepository) Update(ctx context.Context, entry domain.CommunityEntry) error {
	base, err := r.base(entry.Kind)
	if err != nil {
		return err
	}
	entryID := strings.TrimSpace(entry.ID)
	if entryID == "" {
		return errors.New("community repository: entry id is required")
	}
	docRef, err := base.DocumentRef(ctx, entryID)
	if err != nil {
		return err
	}
	if _, err := docRef.Set(ctx, encodeCommunityDocument(entry)); err != nil {
		return pfirestore.WrapError(string(entry.Kind)+".update", err)
	}
	return nil
}

// Delete removes the entry.
func (r *CommunityRepository) Delete(ctx context.Context, kind domain.CommunityKind, entryID string) error {
	base, err := r.base(kind)
	if err != nil {
		return err
	}
	docRef, err := base.DocumentRef(ctx, strings.TrimSpace(entryID))
	if err != nil {
		return err
	}
	if _, err := docRef.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError(string(kind)+".delete", err)
	}
	return nil
}

// FindByID fetches a single entry.
func (r *CommunityRepository) FindByID(ctx context.Context, kind domain.CommunityKind, entryID string) (domain.CommunityEntry, error) {
	base, err := r.base(kind)
	if err != nil {
		return domain.CommunityEntry{}, err
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return domain.CommunityEntry{}, errors.New("community repository: entry id is required")
	}
	doc, err := base.Get(ctx, entryID)
	if err != nil {
		return domain.CommunityEntry{}, err
	}
	return decodeCommunityDocument(kind, entryID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns entries of one kind ordered by creation time, newest first.
func (r *CommunityRepository) List(ctx context.Context, filter repositories.CommunityListFilter) (domain.CursorPage[domain.CommunityEntry], error) {
	base, err := r.base(filter.Kind)
	if err != nil {
		return domain.CursorPage[domain.CommunityEntry]{}, err
	}
	if len(filter.Status) > maxInClauseValues {
		return domain.CursorPage[domain.CommunityEntry]{}, fmt.Errorf("community repository: at most %d status values supported", maxInClauseValues)
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.CommunityEntry]{}, fmt.Errorf("community repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	ownerID := strings.TrimSpace(filter.OwnerID)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		if ownerID != "" {
			q = q.Where("ownerId", "==", ownerID)
		}
		if len(filter.Status) > 0 {
			q = q.Where("status", "in", moderationStatusStrings(filter.Status))
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 && search == "" {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.CommunityEntry]{}, err
	}

	if search != "" {
		filtered := docs[:0]
		for _, doc := range docs {
			if strings.Contains(strings.ToLower(doc.Data.Title), search) ||
				strings.Contains(strings.ToLower(doc.Data.Body), search) {
				filtered = append(filtered, doc)
			}
		}
		docs = filtered
		if fetchLimit > 0 && len(docs) > fetchLimit {
			docs = docs[:fetchLimit]
		}
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.CommunityEntry, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeCommunityDocument(filter.Kind, doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return domain.CursorPage[domain.CommunityEntry]{Items: items, NextPageToken: nextToken}, nil
}

// ToggleEngagement flips userID's membership in the named set inside a
// transaction and reports the resulting membership and set size.
func (r *CommunityRepository) ToggleEngagement(ctx context.Context, kind domain.CommunityKind, entryID string, field domain.EngagementKind, userID string) (bool, int, error) {
	base, err := r.base(kind)
	if err != nil {
		return false, 0, err
	}
	entryID = strings.TrimSpace(entryID)
	userID = strings.TrimSpace(userID)
	if entryID == "" || userID == "" {
		return false, 0, errors.New("community repository: entry id and user id are required")
	}
	fieldName, err := engagementFieldName(field)
	if err != nil {
		return false, 0, err
	}

	docRef, err := base.DocumentRef(ctx, entryID)
	if err != nil {
		return false, 0, err
	}

	var member bool
	var count int
	txErr := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		var doc communityDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		var members []string
		switch field {
		case domain.EngagementLikes:
			members = doc.Likes
		case domain.EngagementBookmarks:
			members = doc.Bookmarks
		case domain.EngagementVotes:
			members = doc.Votes
		}

		members, member = toggleMembership(members, userID)
		count = len(members)

		return tx.Update(docRef, []firestore.Update{
			{Path: fieldName, Value: members},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	if txErr != nil {
		return false, 0, txErr
	}
	return member, count, nil
}

func engagementFieldName(field domain.EngagementKind) (string, error) {
	switch field {
	case domain.EngagementLikes:
		return "likes", nil
	case domain.EngagementBookmarks:
		return "bookmarks", nil
	case domain.EngagementVotes:
		return "votes", nil
	default:
		return "", fmt.Errorf("community repository: unknown engagement field %q", field)
	}
}

func toggleMembership(members []string, userID string) ([]string, bool) {
	for i, member := range members {
		if member == userID {
			return append(members[:i], members[i+1:]...), false
		}
	}
	return append(members, userID), true
}

func encodeCommunityDocument(entry domain.CommunityEntry) communityDocument {
	return communityDocument{
		OwnerID:    strings.TrimSpace(entry.OwnerID),
		OwnerName:  strings.TrimSpace(entry.OwnerName),
		Title:      entry.Title,
		Body:       entry.Body,
		Answer:     entry.Answer,
		Status:     string(entry.Status),
		Fields:     cloneFieldMap(entry.Fields),
		Likes:      cloneStringSlice(entry.Likes),
		Bookmarks:  cloneStringSlice(entry.Bookmarks),
		Votes:      cloneStringSlice(entry.Votes),
		Answered:   entry.Answered,
		AnsweredAt: normaliseTimePointer(entry.AnsweredAt),
		CreatedAt:  entry.CreatedAt.UTC(),
		UpdatedAt:  entry.UpdatedAt.UTC(),
	}
}

func decodeCommunityDocument(kind domain.CommunityKind, id string, doc communityDocument, createdAt, updatedAt time.Time) domain.CommunityEntry {
	return domain.CommunityEntry{
		ID:         strings.TrimSpace(id),
		Kind:       kind,
		OwnerID:    doc.OwnerID,
		OwnerName:  doc.OwnerName,
		Title:      doc.Title,
		Body:       doc.Body,
		Answer:     doc.Answer,
		Status:     domain.ModerationStatus(doc.Status),
		Fields:     cloneFieldMap(doc.Fields),
		Likes:      cloneStringSlice(doc.Likes),
		Bookmarks:  cloneStringSlice(doc.Bookmarks),
		Votes:      cloneStringSlice(doc.Votes),
		Answered:   doc.Answered,
		AnsweredAt: normaliseTimePointer(doc.AnsweredAt),
		CreatedAt:  chooseTime(doc.CreatedAt, createdAt),
		UpdatedAt:  chooseTime(doc.UpdatedAt, updatedAt),
	}
}

func moderationStatusStrings(statuses []domain.ModerationStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func cloneStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func cloneFieldMap(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
