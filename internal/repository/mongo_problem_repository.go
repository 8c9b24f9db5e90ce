package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codeduel/duel-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const problemCollection = "problems"

// mongoProblem problems 컬렉션 문서
type mongoProblem struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Title            string             `bson:"title"`
	Description      string             `bson:"description"`
	Difficulty       string             `bson:"difficulty"`
	VisibleTestCases []models.TestCase  `bson:"visibleTestCases"`
	HiddenTestCases  []models.TestCase  `bson:"hiddenTestCases"`
	StartCode        []models.StartCode `bson:"startCode"`
}

func (m *mongoProblem) toModel() *models.Problem {
	return &models.Problem{
		ID:          m.ID.Hex(),
		Title:       m.Title,
		Description: m.Description,
		Difficulty:  models.Difficulty(m.Difficulty),
		Examples:    m.VisibleTestCases,
		HiddenTests: m.HiddenTestCases,
		StartCode:   m.StartCode,
	}
}

type MongoProblemRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongo MongoDB 연결 후 문제 저장소 생성
func ConnectMongo(ctx context.Context, uri, database string) (*MongoProblemRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoProblemRepository{
		client:     client,
		collection: client.Database(database).Collection(problemCollection),
	}, nil
}

// FindByDifficulties 난이도 집합에 속한 문제 목록
func (r *MongoProblemRepository) FindByDifficulties(ctx context.Context, difficulties []models.Difficulty) ([]*models.Problem, error) {
	filter := bson.M{"difficulty": bson.M{"$in": difficultyStrings(difficulties)}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find problems: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoProblem
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode problems: %w", err)
	}

	problems := make([]*models.Problem, 0, len(docs))
	for i := range docs {
		problems = append(problems, docs[i].toModel())
	}
	return problems, nil
}

// FindByID ObjectID hex 문자열로 문제 찾기
func (r *MongoProblemRepository) FindByID(ctx context.Context, id string) (*models.Problem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrProblemNotFound
	}

	var doc mongoProblem
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProblemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find problem: %w", err)
	}
	return doc.toModel(), nil
}

// Create 문서 삽입. _id는 드라이버가 생성
func (r *MongoProblemRepository) Create(ctx context.Context, p *models.Problem) (string, error) {
	doc := mongoProblem{
		Title:            p.Title,
		Description:      p.Description,
		Difficulty:       string(p.Difficulty),
		VisibleTestCases: p.Examples,
		HiddenTestCases:  p.HiddenTests,
		StartCode:        p.StartCode,
	}

	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create problem: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// Close 연결 종료
func (r *MongoProblemRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
