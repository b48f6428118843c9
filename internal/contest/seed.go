package contest

import "time"

// DefaultJudges is the static judge roster.
var DefaultJudges = []Judge{
	{ID: "j1", Name: "Sarah Johnson"},
	{ID: "j2", Name: "Michael Chen"},
	{ID: "j3", Name: "Emily Rodriguez"},
}

// SeedSubmissions returns a fresh copy of the dataset used when storage holds
// no readable submissions.
func SeedSubmissions() []Submission {
	return []Submission{
		{
			ID:             "s1",
			Title:          "Summer Dreams",
			ArtistName:     "Alex Turner",
			AudioURL:       "https://www2.cs.uic.edu/~i101/SoundFiles/BabyElephantWalk60.wav",
			ContestantID:   "c1",
			ContestantName: "Alex Turner",
			SubmittedAt:    time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			Status:         StatusPending,
		},
		{
			ID:              "s2",
			Title:           "Midnight Jazz",
			ArtistName:      "Lisa Marie",
			AudioURL:        "https://www2.cs.uic.edu/~i101/SoundFiles/PinkPanther30.wav",
			ContestantID:    "c2",
			ContestantName:  "Lisa Marie",
			SubmittedAt:     time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
			Status:          StatusAssigned,
			AssignedJudgeID: "j1",
		},
		{
			ID:              "s3",
			Title:           "Electric Soul",
			ArtistName:      "Jordan Blake",
			AudioURL:        "https://www2.cs.uic.edu/~i101/SoundFiles/CantinaBand60.wav",
			ContestantID:    "c3",
			ContestantName:  "Jordan Blake",
			SubmittedAt:     time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
			Status:          StatusJudged,
			AssignedJudgeID: "j2",
			Rating:          Ptr(8.5),
			Feedback:        "Great energy and creativity!",
		},
	}
}
