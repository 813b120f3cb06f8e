package services

import (
	"context"
	"encoding/json"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizService struct {
	base
}

func NewQuizService(db *gorm.DB, log *utils.Logger, opts ...Option) *QuizService {
	return &QuizService{base: newBase(db, log, "QuizService", opts)}
}

func publishedQuiz(tx *gorm.DB, quizID uint) (*models.Quiz, error) {
	quiz, err := first[models.Quiz](tx, "quiz", quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != models.StatusPublished {
		return nil, apperr.New(apperr.NotFound, "quiz %d is not published", quizID)
	}
	return quiz, nil
}

func countSubmittedAttempts(tx *gorm.DB, userID, quizID uint) (int64, error) {
	return countWhere(tx, &models.QuizAttempt{}, "user_id = ? AND quiz_id = ? AND submitted_at IS NOT NULL", userID, quizID)
}

// StartAttempt opens a new attempt. Open attempts are disposable and do not
// count against the limit; the count runs under the enrollment row lock.
func (s *QuizService) StartAttempt(ctx context.Context, userID, quizID uint) (*models.QuizAttempt, error) {
	var attempt *models.QuizAttempt
	err := s.tx(ctx, func(tx *gorm.DB) error {
		quiz, err := publishedQuiz(tx, quizID)
		if err != nil {
			return err
		}
		if _, err := requireActiveEnrollment(tx, userID, quiz.CourseID, true); err != nil {
			return err
		}
		now := s.now()
		if err := checkWindow(now, quiz.AvailableFrom, quiz.AvailableUntil, "quiz"); err != nil {
			return err
		}
		used, err := countSubmittedAttempts(tx, userID, quizID)
		if err != nil {
			return err
		}
		if err := checkAttemptLimit(quiz.AllowMultipleAttempts, quiz.MaxAttempts, used, "quiz"); err != nil {
			return err
		}
		attempt = &models.QuizAttempt{
			UserID:        userID,
			QuizID:        quizID,
			CourseID:      quiz.CourseID,
			AttemptNumber: int(used) + 1,
			Answers:       datatypes.JSON("[]"),
			StartedAt:     now,
		}
		if err := tx.Create(attempt).Error; err != nil {
			return internal(err, "create attempt")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Quiz attempt started", "attempt_id", attempt.ID, "quiz_id", quizID, "user_id", userID, "attempt_number", attempt.AttemptNumber)
	return attempt, nil
}

// SubmitAttempt grades and closes an open attempt. The attempt number is
// reassigned from the submitted count so the N-th submit always carries N.
func (s *QuizService) SubmitAttempt(ctx context.Context, userID, attemptID uint, answers []models.Answer) (*models.QuizAttempt, error) {
	if answers == nil {
		answers = []models.Answer{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, apperr.Wrap(apperr.ValidationFailed, err, "invalid answers")
	}

	var attempt *models.QuizAttempt
	err = s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if attempt, err = first[models.QuizAttempt](tx, "attempt", attemptID); err != nil {
			return err
		}
		if attempt.UserID != userID {
			return apperr.New(apperr.Forbidden, "attempt %d belongs to another user", attemptID)
		}
		if attempt.IsSubmitted() {
			return apperr.New(apperr.Conflict, "attempt %d is already submitted", attemptID)
		}
		quiz, err := first[models.Quiz](tx, "quiz", attempt.QuizID)
		if err != nil {
			return err
		}
		if _, err := requireActiveEnrollment(tx, userID, quiz.CourseID, true); err != nil {
			return err
		}
		used, err := countSubmittedAttempts(tx, userID, quiz.ID)
		if err != nil {
			return err
		}
		if err := checkAttemptLimit(quiz.AllowMultipleAttempts, quiz.MaxAttempts, used, "quiz"); err != nil {
			return err
		}

		var questions []models.QuizQuestion
		if err := tx.Where("quiz_id = ?", quiz.ID).Find(&questions).Error; err != nil {
			return internal(err, "load questions")
		}
		res := GradeAttempt(questions, answers, quiz.PassingScore)

		now := s.now()
		spent := int64(now.Sub(attempt.StartedAt).Seconds())
		if spent < 0 {
			spent = 0
		}
		if quiz.TimeLimitMinutes != nil && spent > int64(*quiz.TimeLimitMinutes)*60 {
			s.log.Warn("Quiz attempt over time limit", "attempt_id", attemptID, "time_spent_seconds", spent, "time_limit_minutes", *quiz.TimeLimitMinutes)
		}

		updates := map[string]interface{}{
			"answers":            datatypes.JSON(raw),
			"score":              res.Score,
			"max_score":          res.MaxScore,
			"percentage":         res.Percentage,
			"passed":             res.Passed,
			"submitted_at":       now,
			"time_spent_seconds": spent,
			"attempt_number":     int(used) + 1,
		}
		result := tx.Model(&models.QuizAttempt{}).
			Where("id = ? AND submitted_at IS NULL", attemptID).
			Updates(updates)
		if result.Error != nil {
			return internal(result.Error, "submit attempt")
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.Conflict, "attempt %d is already submitted", attemptID)
		}

		attempt.Answers = datatypes.JSON(raw)
		attempt.Score = res.Score
		attempt.MaxScore = res.MaxScore
		attempt.Percentage = res.Percentage
		attempt.Passed = res.Passed
		attempt.SubmittedAt = &now
		attempt.TimeSpentSeconds = spent
		attempt.AttemptNumber = int(used) + 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Quiz attempt submitted",
		"attempt_id", attemptID, "user_id", userID,
		"score", attempt.Score, "max_score", attempt.MaxScore, "percentage", attempt.Percentage)
	return attempt, nil
}

// ListAttempts returns the learner's attempts at a quiz, oldest first.
func (s *QuizService) ListAttempts(ctx context.Context, userID, quizID uint) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("id").
		Find(&attempts).Error
	if err != nil {
		return nil, internal(err, "list attempts")
	}
	return attempts, nil
}

// GetAttempt is visible to its owner and to authors.
func (s *QuizService) GetAttempt(ctx context.Context, actor models.Actor, attemptID uint) (*models.QuizAttempt, error) {
	attempt, err := first[models.QuizAttempt](s.db.WithContext(ctx), "attempt", attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != actor.UserID && requireAuthor(actor) != nil {
		return nil, apperr.New(apperr.Forbidden, "attempt %d belongs to another user", attemptID)
	}
	return attempt, nil
}

// Analytics summarises submitted attempts for the quiz's course author.
func (s *QuizService) Analytics(ctx context.Context, actor models.Actor, quizID uint) (*models.QuizAnalytics, error) {
	db := s.db.WithContext(ctx)
	quiz, err := first[models.Quiz](db, "quiz", quizID)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != actor.UserID {
		if _, err := ownedCourse(db, actor, quiz.CourseID); err != nil {
			return nil, err
		}
	}

	out := &models.QuizAnalytics{QuizID: quiz.ID, QuizTitle: quiz.Title}
	submitted := func() *gorm.DB {
		return db.Model(&models.QuizAttempt{}).Where("quiz_id = ? AND submitted_at IS NOT NULL", quizID)
	}
	var avg struct {
		AvgScore float64
		AvgTime  float64
	}
	if err := submitted().Count(&out.Attempts).Error; err != nil {
		return nil, internal(err, "count attempts")
	}
	if err := submitted().Distinct("user_id").Count(&out.Learners).Error; err != nil {
		return nil, internal(err, "count learners")
	}
	if err := submitted().Where("passed = ?", true).Count(&out.PassedCount).Error; err != nil {
		return nil, internal(err, "count passes")
	}
	err = submitted().
		Select("COALESCE(AVG(percentage), 0) AS avg_score, COALESCE(AVG(time_spent_seconds), 0) AS avg_time").
		Scan(&avg).Error
	if err != nil {
		return nil, internal(err, "average attempts")
	}
	out.AverageScore = avg.AvgScore
	out.AvgTimeSpent = avg.AvgTime
	return out, nil
}
