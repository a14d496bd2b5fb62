package bridge

import (
	"time"

	"git.home.luguber.info/inful/sitehub/internal/remote"
)

// DeployResultView is the subscriber-facing shape of a deployment status change.
type DeployResultView struct {
	ID          string     `json:"id"`
	ShortID     string     `json:"shortId"`
	Status      string     `json:"status"`
	StatusText  string     `json:"statusText,omitempty"`
	Author      string     `json:"author,omitempty"`
	AuthorEmail string     `json:"authorEmail,omitempty"`
	Message     string     `json:"message,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Complete    bool       `json:"complete"`
	Failed      bool       `json:"failed"`
	Elapsed     string     `json:"elapsed,omitempty"`
}

const shortIDLen = 10

// NewDeployResultView projects r for subscribers. Elapsed runs to now while
// the deployment is still in progress.
func NewDeployResultView(r remote.DeployResult, now time.Time) DeployResultView {
	v := DeployResultView{
		ID:          r.ID,
		ShortID:     r.ID,
		Status:      string(r.Status),
		StatusText:  r.StatusText,
		Author:      r.AuthorName,
		AuthorEmail: r.AuthorEmail,
		Message:     r.Message,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Complete:    r.Complete,
		Failed:      r.Status == remote.DeployFailed,
	}
	if len(v.ShortID) > shortIDLen {
		v.ShortID = v.ShortID[:shortIDLen]
	}
	if !r.StartTime.IsZero() {
		end := now
		if r.EndTime != nil {
			end = *r.EndTime
		}
		if d := end.Sub(r.StartTime); d >= 0 {
			v.Elapsed = d.Round(time.Second).String()
		}
	}
	return v
}
