package grpc

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/email-qc/internal/repository/models"
	"github.com/godilite/email-qc/internal/scoring"
	"github.com/godilite/email-qc/internal/service"
)

// Request field names.
const (
	fieldStartDate       = "start_date"
	fieldEndDate         = "end_date"
	fieldBody            = "body"
	fieldTicketID        = "ticket_id"
	fieldArticleID       = "article_id"
	fieldAgentID         = "agent_id"
	fieldReceivedAt      = "received_at"
	fieldFirstResponseAt = "first_response_at"
	fieldLimit           = "limit"
)

// TimePeriodRequest builds the request for the analytics RPCs.
func TimePeriodRequest(start, end time.Time) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldStartDate: structpb.NewStringValue(start.UTC().Format(time.RFC3339Nano)),
		fieldEndDate:   structpb.NewStringValue(end.UTC().Format(time.RFC3339Nano)),
	}}
}

// ScoreEmailRequest builds the request for ScoreEmail.
func ScoreEmailRequest(s scoring.EmailSample) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldBody:      structpb.NewStringValue(s.Body),
		fieldTicketID:  structpb.NewNumberValue(float64(s.TicketID)),
		fieldArticleID: structpb.NewNumberValue(float64(s.ArticleID)),
		fieldAgentID:   structpb.NewNumberValue(float64(s.AgentID)),
	}
	if s.ReceivedAt != nil {
		fields[fieldReceivedAt] = structpb.NewStringValue(s.ReceivedAt.Format(time.RFC3339Nano))
	}
	if s.FirstResponseAt != nil {
		fields[fieldFirstResponseAt] = structpb.NewStringValue(s.FirstResponseAt.Format(time.RFC3339Nano))
	}
	return &structpb.Struct{Fields: fields}
}

func invalidArg(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}

func stringField(req *structpb.Struct, name string) (string, bool, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", false, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return "", false, nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", false, invalidArg("%s must be a string", name)
	}
	return s.StringValue, true, nil
}

func intField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, invalidArg("%s must be a number", name)
	}
	if n.NumberValue != float64(int64(n.NumberValue)) {
		return 0, invalidArg("%s must be an integer", name)
	}
	return int64(n.NumberValue), nil
}

func timeField(req *structpb.Struct, name string) (*time.Time, error) {
	s, ok, err := stringField(req, name)
	if err != nil || !ok {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, invalidArg("%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}

func parseSample(req *structpb.Struct) (scoring.EmailSample, error) {
	var (
		s   scoring.EmailSample
		err error
	)
	if s.Body, _, err = stringField(req, fieldBody); err != nil {
		return s, err
	}
	if s.TicketID, err = intField(req, fieldTicketID); err != nil {
		return s, err
	}
	if s.ArticleID, err = intField(req, fieldArticleID); err != nil {
		return s, err
	}
	if s.AgentID, err = intField(req, fieldAgentID); err != nil {
		return s, err
	}
	if s.ReceivedAt, err = timeField(req, fieldReceivedAt); err != nil {
		return s, err
	}
	if s.FirstResponseAt, err = timeField(req, fieldFirstResponseAt); err != nil {
		return s, err
	}
	return s, nil
}

func anyMap[V float64 | string](m map[string]V) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func subScoreToMap(s scoring.SubScoreResult) map[string]any {
	matches := make(map[string]any, len(s.Details.Matches))
	for k, v := range s.Details.Matches {
		list := make([]any, len(v))
		for i, m := range v {
			list[i] = m
		}
		matches[k] = list
	}
	return map[string]any{
		"name":          string(s.Name),
		"score":         s.Score,
		"indeterminate": s.Indeterminate,
		"metrics":       anyMap(s.Details.Metrics),
		"labels":        anyMap(s.Details.Labels),
		"matches":       matches,
	}
}

func resultToMap(id int64, r scoring.QCResult) map[string]any {
	subs := make([]any, len(r.SubScores))
	for i, s := range r.SubScores {
		subs[i] = subScoreToMap(s)
	}
	return map[string]any{
		"result_id":       float64(id),
		"ticket_id":       float64(r.TicketID),
		"article_id":      float64(r.ArticleID),
		"agent_id":        float64(r.AgentID),
		"timestamp":       r.Timestamp.UTC().Format(time.RFC3339Nano),
		"email_body":      strings.ToValidUTF8(r.EmailBody, "\uFFFD"),
		"sub_scores":      subs,
		"total_score":     r.TotalScore,
		"feedback":        r.Feedback,
		"recommendations": r.Recommendations,
		"pattern_version": r.PatternVersion,
	}
}

func historyToMap(rows []models.StoredResult) map[string]any {
	list := make([]any, len(rows))
	for i, r := range rows {
		list[i] = resultToMap(r.ID, r.Result)
	}
	return map[string]any{"results": list}
}

func dimensionScoresToMap(scores []service.AggregatedDimensionScores) map[string]any {
	list := make([]any, len(scores))
	for i, d := range scores {
		periods := make([]any, len(d.PeriodScores))
		for j, p := range d.PeriodScores {
			periods[j] = map[string]any{"period": p.Period, "score": p.Score}
		}
		list[i] = map[string]any{
			"dimension":     d.Dimension,
			"total_results": float64(d.TotalResults),
			"overall_score": d.OverallScore,
			"period_scores": periods,
		}
	}
	return map[string]any{"dimension_scores": list}
}

func agentScoresToMap(scores []service.AgentScores) map[string]any {
	list := make([]any, len(scores))
	for i, a := range scores {
		list[i] = map[string]any{
			"agent_id":         float64(a.AgentID),
			"agent_name":       a.AgentName,
			"total_score":      a.TotalScore,
			"dimension_scores": anyMap(a.DimensionScores),
		}
	}
	return map[string]any{"agent_scores": list}
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return s, nil
}
