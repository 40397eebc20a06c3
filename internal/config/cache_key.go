package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key for a candidate's login session
func (r *CacheKeyStruct) CandidateSessionKey(candidateID int) string {
	return fmt.Sprintf("login:%d", candidateID)
}

// AttemptStartKey returns the cache key for an attempt's start timestamp
func (r *CacheKeyStruct) AttemptStartKey(candidateID int, assessmentID string) string {
	return fmt.Sprintf("candidate:%d:assessment:%s:attempt_start", candidateID, assessmentID)
}

// AttemptAnswersKey returns the cache key for an attempt's autosaved answers
func (r *CacheKeyStruct) AttemptAnswersKey(candidateID int, assessmentID string) string {
	return fmt.Sprintf("candidate:%d:assessment:%s:answers", candidateID, assessmentID)
}

// AssessmentFormKey returns the cache key for an assessment's candidate form payload
func (r *CacheKeyStruct) AssessmentFormKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:form", assessmentID)
}

// AssessmentDurationKey returns the cache key for an assessment's time limit
func (r *CacheKeyStruct) AssessmentDurationKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:duration", assessmentID)
}

var CacheKey = NewCacheKeyStruct()
