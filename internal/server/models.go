package server

import "time"

type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// HTTPError is the unified error body produced by the error handler.
type HTTPError struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Subjects       int     `json:"subjects"`
	ActiveTopics   int     `json:"active_topics"`
	TotalQuestions int     `json:"total_questions"`
	QuestionsToday int     `json:"questions_today"`
	ExamPapers     int     `json:"exam_papers"`
	AvgQuality     float64 `json:"avg_quality"`
	BudgetUsed     int     `json:"budget_used"`
	BudgetLimit    int     `json:"budget_limit"`
}

type NeedResponse struct {
	TopicID         string `json:"topic_id"`
	Title           string `json:"title"`
	Subject         string `json:"subject"`
	CurrentCount    int    `json:"current_count"`
	NeededQuestions int    `json:"needed_questions"`
	Priority        string `json:"priority"`
}

type GenerateRequest struct {
	Subject   string `json:"subject"`
	MaxTopics int    `json:"max_topics"`
}

type GenerateResponse struct {
	TopicsProcessed     int      `json:"topics_processed"`
	SuccessfulTopics    int      `json:"successful_topics"`
	FailedTopics        int      `json:"failed_topics"`
	QuestionsGenerated  int      `json:"questions_generated"`
	AverageQualityScore float64  `json:"average_quality_score"`
	ProcessingTimeMs    int64    `json:"processing_time_ms"`
	Errors              []string `json:"errors,omitempty"`
}

type RunResponse struct {
	ID                 string     `json:"id"`
	Trigger            string     `json:"trigger"`
	Subject            string     `json:"subject,omitempty"`
	Status             string     `json:"status"`
	QuestionsGenerated int        `json:"questions_generated"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	Error              *string    `json:"error,omitempty"`
}
