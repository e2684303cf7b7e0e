package store

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// Export builds an export-ready snapshot of every profile with its sessions and exams.
func Export(st Store) (model.Export, error) {
	profiles, err := st.ListProfiles()
	if err != nil {
		return model.Export{}, fmt.Errorf("list profiles: %w", err)
	}

	out := model.Export{
		GeneratedAt: time.Now(),
		Profiles:    make([]model.ProfileExport, 0, len(profiles)),
	}
	for _, p := range profiles {
		pe := model.ProfileExport{
			UserID:   p.UserID,
			Sessions: []model.Session{},
		}
		for _, id := range p.SessionIDs {
			sess, err := st.GetSession(id)
			if errors.Is(err, model.ErrNotFound) {
				slog.Warn("profile links missing session", "user_id", p.UserID, "session_id", id)
				continue
			}
			if err != nil {
				return model.Export{}, fmt.Errorf("get session %s: %w", id, err)
			}
			pe.Sessions = append(pe.Sessions, sess)
		}

		pe.Exams, err = st.ListExamsForSessions(p.SessionIDs)
		if err != nil {
			return model.Export{}, fmt.Errorf("list exams for %s: %w", p.UserID, err)
		}
		out.Profiles = append(out.Profiles, pe)
	}
	return out, nil
}
