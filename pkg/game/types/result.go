package types

type CaptureRecord struct {
	ThiefID        string `json:"thiefId"`
	ThiefNickname  string `json:"thiefNickname"`
	PoliceID       string `json:"policeId"`
	PoliceNickname string `json:"policeNickname"`
	CapturedAt     int64  `json:"capturedAt"`
	JailedAt       *int64 `json:"jailedAt"`
}

type GameStats struct {
	TotalThieves    int             `json:"totalThieves"`
	CapturedCount   int             `json:"capturedCount"`
	JailedCount     int             `json:"jailedCount"`
	SurvivedThieves []string        `json:"survivedThieves"`
	CaptureHistory  []CaptureRecord `json:"captureHistory"`
}

type GameResult struct {
	Winner Team      `json:"winner"`
	Reason string    `json:"reason"`
	Stats  GameStats `json:"stats"`
}
