// Package store persists topics, generated questions, exam papers, ingested
// content, and embeddings in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/studygen/studygen/internal/models"
)

type Store struct {
	DB *sql.DB
}

// Generation run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// EmbeddingDimensions is the expected length of vectors stored in the
// pgvector column.
const EmbeddingDimensions = 768

// New constructs the Store from DATABASE_URL or the POSTGRES_* variables.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// Subject operations

type Subject struct {
	ID        string
	Name      string
	Code      string
	CreatedAt time.Time
}

func (s *Store) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, code, created_at FROM subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subject
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Code, &sub.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Topic operations

func (s *Store) GetTopicInfo(ctx context.Context, topicID string) (models.TopicInfo, error) {
	var (
		title, subjectName  string
		difficulty          int
		syllabusCode, descr sql.NullString
		objectives          []string
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT t.title, s.name, t.difficulty_level, t.syllabus_code, t.description, t.learning_objectives
FROM topics t JOIN subjects s ON s.id = t.subject_id
WHERE t.id=$1 AND t.is_active
`, topicID).Scan(&title, &subjectName, &difficulty, &syllabusCode, &descr, pq.Array(&objectives))
	if err != nil {
		return models.TopicInfo{}, err
	}
	return models.NewTopicInfo(topicID, title, subjectName, difficulty, syllabusCode.String, descr.String, objectives)
}

// TopicQuestionCounts returns every active topic with its current question
// count and last generation time, optionally filtered to one subject.
func (s *Store) TopicQuestionCounts(ctx context.Context, subject string) ([]models.TopicGenerationNeed, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT t.id, t.title, s.name, t.difficulty_level, t.syllabus_code, t.description, t.learning_objectives,
       COUNT(qq.id) AS question_count, MAX(q.created_at) AS last_generated
FROM topics t
JOIN subjects s ON s.id = t.subject_id
LEFT JOIN quizzes q ON q.topic_id = t.id
LEFT JOIN quiz_questions qq ON qq.quiz_id = q.id
WHERE t.is_active AND ($1 = '' OR s.name = $1)
GROUP BY t.id, t.title, s.name, t.difficulty_level, t.syllabus_code, t.description, t.learning_objectives
ORDER BY question_count ASC
`, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TopicGenerationNeed
	for rows.Next() {
		var (
			id, title, subjectName string
			difficulty             int
			syllabusCode, descr    sql.NullString
			objectives             []string
			count                  int
			lastGenerated          *time.Time
		)
		if err := rows.Scan(&id, &title, &subjectName, &difficulty, &syllabusCode, &descr,
			pq.Array(&objectives), &count, &lastGenerated); err != nil {
			return nil, err
		}
		topic, err := models.NewTopicInfo(id, title, subjectName, difficulty, syllabusCode.String, descr.String, objectives)
		if err != nil {
			return nil, fmt.Errorf("topic %s: %w", id, err)
		}
		out = append(out, models.TopicGenerationNeed{
			Topic:              topic,
			CurrentCount:       count,
			LastGenerationDate: lastGenerated,
		})
	}
	return out, rows.Err()
}

// Quiz operations

// SaveGeneratedQuestions persists a batch of questions as one quiz and
// returns the quiz id.
func (s *Store) SaveGeneratedQuestions(ctx context.Context, topic models.TopicInfo, questions []models.QuizQuestion) (string, error) {
	if len(questions) == 0 {
		return "", fmt.Errorf("no questions to save")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	quizID := uuid.NewString()
	title := fmt.Sprintf("%s Practice Quiz", topic.Title)
	method := string(questions[0].Provenance.Method)
	model := questions[0].Provenance.Model
	if _, err := tx.ExecContext(ctx, `
INSERT INTO quizzes (id, topic_id, title, generation_method, generation_model, created_at)
VALUES ($1,$2,$3,$4,$5,NOW())
`, quizID, topic.ID, title, method, nullableString(model)); err != nil {
		return "", fmt.Errorf("insert quiz: %w", err)
	}

	for i, q := range questions {
		optionsJSON, err := json.Marshal(q.Options)
		if err != nil {
			return "", fmt.Errorf("marshal options: %w", err)
		}
		var score interface{}
		if q.QualityScore != nil {
			score = *q.QualityScore
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO quiz_questions (id, quiz_id, question_order, question_text, question_type, options, correct_answer, explanation, points, difficulty_level, hint, tags, quality_score, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
`, uuid.NewString(), quizID, i+1, q.QuestionText, string(q.QuestionType), optionsJSON,
			q.CorrectAnswer, q.Explanation, q.Points, q.DifficultyLevel,
			nullableString(q.Hint), pq.Array(q.Tags), score); err != nil {
			return "", fmt.Errorf("insert question %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return quizID, nil
}

// Exam operations

// SaveExamPaper persists a paper and its questions, returning the paper id.
func (s *Store) SaveExamPaper(ctx context.Context, paper models.ExamPaper) (string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	paperID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO exam_papers (id, topic_id, title, instructions, duration_minutes, total_marks, difficulty_level, generation_method, generation_model, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
`, paperID, paper.TopicID, paper.Title, paper.Instructions, paper.DurationMinutes,
		paper.TotalMarks, paper.DifficultyLevel, string(paper.Provenance.Method),
		nullableString(paper.Provenance.Model)); err != nil {
		return "", fmt.Errorf("insert exam paper: %w", err)
	}

	for _, q := range paper.Questions {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO exam_questions (id, paper_id, question_order, question_text, marks, answer_text, explanation, question_type, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
`, uuid.NewString(), paperID, q.QuestionOrder, q.QuestionText, q.Marks,
			q.AnswerText, nullableString(q.Explanation), q.QuestionType); err != nil {
			return "", fmt.Errorf("insert exam question %d: %w", q.QuestionOrder, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return paperID, nil
}

// Generation run bookkeeping

type GenerationRun struct {
	ID         string
	Trigger    string
	Subject    string
	Status     string
	Questions  int
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      *string
}

func (s *Store) StartRun(ctx context.Context, trigger, subject string) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO generation_runs (id, trigger, subject, status, started_at)
VALUES ($1,$2,$3,$4,NOW())
`, id, trigger, nullableString(subject), RunStatusRunning)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID, status string, questions int, errMsg *string) error {
	_, err := s.DB.ExecContext(ctx, `
UPDATE generation_runs SET status=$2, questions_generated=$3, error=$4, finished_at=NOW() WHERE id=$1
`, runID, status, questions, errMsg)
	return err
}

func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]GenerationRun, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, trigger, COALESCE(subject, ''), status, questions_generated, started_at, finished_at, error
FROM generation_runs ORDER BY started_at DESC LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GenerationRun
	for rows.Next() {
		var r GenerationRun
		if err := rows.Scan(&r.ID, &r.Trigger, &r.Subject, &r.Status, &r.Questions,
			&r.StartedAt, &r.FinishedAt, &r.Error); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary powers the status command and the admin API.
type Summary struct {
	Subjects       int
	ActiveTopics   int
	TotalQuestions int
	QuestionsToday int
	ExamPapers     int
	AvgQuality     float64
}

func (s *Store) GenerationSummary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.DB.QueryRowContext(ctx, `
SELECT
  (SELECT COUNT(*) FROM subjects),
  (SELECT COUNT(*) FROM topics WHERE is_active),
  (SELECT COUNT(*) FROM quiz_questions),
  (SELECT COUNT(*) FROM quiz_questions WHERE created_at >= date_trunc('day', NOW())),
  (SELECT COUNT(*) FROM exam_papers),
  (SELECT COALESCE(AVG(quality_score), 0) FROM quiz_questions WHERE quality_score IS NOT NULL)
`).Scan(&sum.Subjects, &sum.ActiveTopics, &sum.TotalQuestions, &sum.QuestionsToday,
		&sum.ExamPapers, &sum.AvgQuality)
	return sum, err
}

// User operations

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, passwordHash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, passwordHash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &passwordHash)
	return
}

// helpers

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
