// Package mongo implements session.Store on top of MongoDB, the durable
// run/session metadata mirror named in the domain stack: a secondary,
// non-TTL record of session lifecycle and coarse run status that outlives
// the hot Redis state cache's TTL window, so a run whose full message
// history has expired can still be located as crashed rather than simply
// disappearing.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"goa.design/agentcore/runtime/agent/errkind"
	"goa.design/agentcore/runtime/agent/session"
)

// Store persists session.Session and session.RunMeta documents in two
// collections of one MongoDB database.
type Store struct {
	sessions *mongo.Collection
	runs     *mongo.Collection
}

// New wraps the "sessions" and "runs" collections of db as a session.Store.
// Callers are responsible for connecting and disconnecting the underlying
// *mongo.Client; New does not own the connection lifecycle.
func New(db *mongo.Database) *Store {
	return &Store{
		sessions: db.Collection("sessions"),
		runs:     db.Collection("runs"),
	}
}

// EnsureIndexes creates the indexes this store relies on: a unique index on
// session id and a unique index on run id plus a non-unique index on
// (sessionId, status) for ListRunsBySession. Call once at startup; safe to
// call repeatedly, index creation is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "_id", Value: 1}},
		Options: options.Index(),
	}); err != nil {
		return errkind.Wrap(errkind.InternalServer, err, "create session index")
	}
	if _, err := s.runs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "status", Value: 1}},
	}); err != nil {
		return errkind.Wrap(errkind.InternalServer, err, "create run index")
	}
	return nil
}

type sessionDoc struct {
	ID        string     `bson:"_id"`
	Status    string     `bson:"status"`
	CreatedAt time.Time  `bson:"createdAt"`
	EndedAt   *time.Time `bson:"endedAt,omitempty"`
}

type runDoc struct {
	ID        string            `bson:"_id"`
	AgentID   string            `bson:"agentId"`
	SessionID string            `bson:"sessionId"`
	Status    string            `bson:"status"`
	StartedAt time.Time         `bson:"startedAt"`
	UpdatedAt time.Time         `bson:"updatedAt"`
	Labels    map[string]string `bson:"labels,omitempty"`
	Metadata  bson.M            `bson:"metadata,omitempty"`
}

// CreateSession implements session.Store.
func (s *Store) CreateSession(ctx context.Context, sessionID string, createdAt time.Time) (session.Session, error) {
	if sessionID == "" {
		return session.Session{}, errkind.New(errkind.Validation, "session id is required")
	}
	if createdAt.IsZero() {
		return session.Session{}, errkind.New(errkind.Validation, "created_at is required")
	}

	doc := sessionDoc{ID: sessionID, Status: string(session.StatusActive), CreatedAt: createdAt.UTC()}
	_, err := s.sessions.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		existing, loadErr := s.LoadSession(ctx, sessionID)
		if loadErr != nil {
			return session.Session{}, loadErr
		}
		if existing.Status == session.StatusEnded {
			return session.Session{}, session.ErrSessionEnded
		}
		return existing, nil
	}
	if err != nil {
		return session.Session{}, errkind.Wrap(errkind.InternalServer, err, "insert session %s", sessionID)
	}
	return fromSessionDoc(doc), nil
}

// LoadSession implements session.Store.
func (s *Store) LoadSession(ctx context.Context, sessionID string) (session.Session, error) {
	if sessionID == "" {
		return session.Session{}, errkind.New(errkind.Validation, "session id is required")
	}
	var doc sessionDoc
	err := s.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return session.Session{}, session.ErrSessionNotFound
	}
	if err != nil {
		return session.Session{}, errkind.Wrap(errkind.InternalServer, err, "load session %s", sessionID)
	}
	return fromSessionDoc(doc), nil
}

// EndSession implements session.Store.
func (s *Store) EndSession(ctx context.Context, sessionID string, endedAt time.Time) (session.Session, error) {
	if sessionID == "" {
		return session.Session{}, errkind.New(errkind.Validation, "session id is required")
	}
	if endedAt.IsZero() {
		return session.Session{}, errkind.New(errkind.Validation, "ended_at is required")
	}
	at := endedAt.UTC()
	res := s.sessions.FindOneAndUpdate(ctx,
		bson.M{"_id": sessionID, "status": string(session.StatusActive)},
		bson.M{"$set": bson.M{"status": string(session.StatusEnded), "endedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var doc sessionDoc
	if err := res.Decode(&doc); err != nil {
		if err != mongo.ErrNoDocuments {
			return session.Session{}, errkind.Wrap(errkind.InternalServer, err, "end session %s", sessionID)
		}
		// Already ended, or never existed; distinguish by re-reading.
		existing, loadErr := s.LoadSession(ctx, sessionID)
		if loadErr != nil {
			return session.Session{}, loadErr
		}
		return existing, nil
	}
	return fromSessionDoc(doc), nil
}

// UpsertRun implements session.Store.
func (s *Store) UpsertRun(ctx context.Context, run session.RunMeta) error {
	if run.RunID == "" {
		return errkind.New(errkind.Validation, "run id is required")
	}
	if run.AgentID == "" {
		return errkind.New(errkind.Validation, "agent id is required")
	}
	if run.SessionID == "" {
		return errkind.New(errkind.Validation, "session id is required")
	}

	now := time.Now().UTC()
	metadata := bson.M(nil)
	if len(run.Metadata) > 0 {
		metadata = bson.M(run.Metadata)
	}

	update := bson.M{
		"$set": bson.M{
			"agentId":   run.AgentID,
			"sessionId": run.SessionID,
			"status":    string(run.Status),
			"updatedAt": now,
			"labels":    run.Labels,
			"metadata":  metadata,
		},
		"$setOnInsert": bson.M{"startedAt": firstNonZero(run.StartedAt, now)},
	}
	_, err := s.runs.UpdateOne(ctx, bson.M{"_id": run.RunID}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return errkind.Wrap(errkind.InternalServer, err, "upsert run %s", run.RunID)
	}
	return nil
}

// LoadRun implements session.Store.
func (s *Store) LoadRun(ctx context.Context, runID string) (session.RunMeta, error) {
	if runID == "" {
		return session.RunMeta{}, errkind.New(errkind.Validation, "run id is required")
	}
	var doc runDoc
	err := s.runs.FindOne(ctx, bson.M{"_id": runID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return session.RunMeta{}, session.ErrRunNotFound
	}
	if err != nil {
		return session.RunMeta{}, errkind.Wrap(errkind.InternalServer, err, "load run %s", runID)
	}
	return fromRunDoc(doc), nil
}

// ListRunsBySession implements session.Store.
func (s *Store) ListRunsBySession(ctx context.Context, sessionID string, statuses []session.RunStatus) ([]session.RunMeta, error) {
	if sessionID == "" {
		return nil, errkind.New(errkind.Validation, "session id is required")
	}
	filter := bson.M{"sessionId": sessionID}
	if len(statuses) > 0 {
		vals := make(bson.A, len(statuses))
		for i, st := range statuses {
			vals[i] = string(st)
		}
		filter["status"] = bson.M{"$in": vals}
	}
	cur, err := s.runs.Find(ctx, filter)
	if err != nil {
		return nil, errkind.Wrap(errkind.InternalServer, err, "list runs for session %s", sessionID)
	}
	defer cur.Close(ctx)

	var out []session.RunMeta
	for cur.Next(ctx) {
		var doc runDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errkind.Wrap(errkind.InternalServer, err, "decode run for session %s", sessionID)
		}
		out = append(out, fromRunDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, errkind.Wrap(errkind.InternalServer, err, "iterate runs for session %s", sessionID)
	}
	return out, nil
}

func fromSessionDoc(doc sessionDoc) session.Session {
	return session.Session{ID: doc.ID, Status: session.SessionStatus(doc.Status), CreatedAt: doc.CreatedAt, EndedAt: doc.EndedAt}
}

func fromRunDoc(doc runDoc) session.RunMeta {
	out := session.RunMeta{
		AgentID:   doc.AgentID,
		RunID:     doc.ID,
		SessionID: doc.SessionID,
		Status:    session.RunStatus(doc.Status),
		StartedAt: doc.StartedAt,
		UpdatedAt: doc.UpdatedAt,
		Labels:    doc.Labels,
	}
	if len(doc.Metadata) > 0 {
		out.Metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func firstNonZero(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t.UTC()
}
