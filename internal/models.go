package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type Participant struct {
	MatchID            string `json:"matchId"`
	PUUID              string `json:"puuid"`
	Champion           string `json:"champion"`
	IndividualPosition string `json:"individualPosition"`
	TeamPosition       string `json:"teamPosition"`
	TeamID             int    `json:"teamId"`
	Win                bool   `json:"win"`
	RankNum            *int   `json:"rankNum,omitempty"`
}

type Match struct {
	MatchID            string        `json:"matchId"`
	GameCreation       int64         `json:"gameCreation"`
	GameDuration       int64         `json:"gameDuration"`
	GameEndTimestamp   int64         `json:"gameEndTimestamp"`
	GameMode           string        `json:"gameMode"`
	GameStartTimestamp int64         `json:"gameStartTimestamp"`
	GameType           string        `json:"gameType"`
	GameVersion        string        `json:"gameVersion"`
	Participants       []Participant `json:"participants"`
}

// RosterPage is one page of PUUIDs from a ranked league. Ephemeral, consumed
// by the gatherer and discarded.
type RosterPage struct {
	Players  []string `json:"players"`
	Tier     string   `json:"tier"`
	Division string   `json:"division,omitempty"`
	Page     int      `json:"page,omitempty"`
}

// QueryContext keys one pagination cursor in the progress store.
type QueryContext struct {
	Platform  string
	StartTime string
	EndTime   string
	PUUID     string
}

type GatherTask struct {
	Platform      string `json:"platform"`
	Tier          string `json:"tier"`
	Division      string `json:"division,omitempty"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	TargetMatches int    `json:"targetMatches"`
}

type fieldError struct {
	Context string
	Field   string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s missing required field %q", e.Context, e.Field)
}

type matchV5Payload struct {
	Metadata *struct {
		MatchID string `json:"matchId"`
	} `json:"metadata"`
	Info *struct {
		GameCreation       int64                  `json:"gameCreation"`
		GameDuration       int64                  `json:"gameDuration"`
		GameEndTimestamp   int64                  `json:"gameEndTimestamp"`
		GameMode           string                 `json:"gameMode"`
		GameStartTimestamp int64                  `json:"gameStartTimestamp"`
		GameType           string                 `json:"gameType"`
		GameVersion        string                 `json:"gameVersion"`
		Participants       []participantV5Payload `json:"participants"`
	} `json:"info"`
}

type participantV5Payload struct {
	PUUID              string `json:"puuid"`
	ChampionName       string `json:"championName"`
	ChampionID         *int   `json:"championId"`
	IndividualPosition string `json:"individualPosition"`
	TeamPosition       string `json:"teamPosition"`
	TeamID             int    `json:"teamId"`
	Win                bool   `json:"win"`
}

// ParseMatch turns a raw Match-V5 response body into a Match. Missing
// required fields surface as errors so the gatherer can skip the match.
func ParseMatch(data []byte) (*Match, error) {
	var payload matchV5Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("match payload: %w", err)
	}

	if payload.Metadata == nil || payload.Metadata.MatchID == "" {
		return nil, &fieldError{Context: "match metadata", Field: "matchId"}
	}
	if payload.Info == nil {
		return nil, &fieldError{Context: "match payload", Field: "info"}
	}
	if payload.Info.Participants == nil {
		return nil, &fieldError{Context: "match info", Field: "participants"}
	}

	match := &Match{
		MatchID:            payload.Metadata.MatchID,
		GameCreation:       payload.Info.GameCreation,
		GameDuration:       payload.Info.GameDuration,
		GameEndTimestamp:   payload.Info.GameEndTimestamp,
		GameMode:           payload.Info.GameMode,
		GameStartTimestamp: payload.Info.GameStartTimestamp,
		GameType:           payload.Info.GameType,
		GameVersion:        payload.Info.GameVersion,
	}

	for i, p := range payload.Info.Participants {
		if p.PUUID == "" {
			return nil, &fieldError{Context: fmt.Sprintf("participant[%d]", i), Field: "puuid"}
		}
		champion := p.ChampionName
		if champion == "" {
			// Older payloads only carry championId.
			if p.ChampionID == nil {
				return nil, &fieldError{Context: fmt.Sprintf("participant[%d]", i), Field: "championName"}
			}
			champion = strconv.Itoa(*p.ChampionID)
		}
		match.Participants = append(match.Participants, Participant{
			MatchID:            match.MatchID,
			PUUID:              p.PUUID,
			Champion:           champion,
			IndividualPosition: p.IndividualPosition,
			TeamPosition:       p.TeamPosition,
			TeamID:             p.TeamID,
			Win:                p.Win,
		})
	}

	return match, nil
}

type apexLeaguePayload struct {
	Tier    string `json:"tier"`
	Entries []struct {
		PUUID string `json:"puuid"`
	} `json:"entries"`
}

// ParseApexRoster parses a Master/Grandmaster/Challenger league response.
func ParseApexRoster(data []byte) (*RosterPage, error) {
	var payload apexLeaguePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("league payload: %w", err)
	}
	if payload.Tier == "" {
		return nil, &fieldError{Context: "league payload", Field: "tier"}
	}

	roster := &RosterPage{Tier: payload.Tier}
	for i, entry := range payload.Entries {
		if entry.PUUID == "" {
			return nil, &fieldError{Context: fmt.Sprintf("league entries[%d]", i), Field: "puuid"}
		}
		roster.Players = append(roster.Players, entry.PUUID)
	}
	return roster, nil
}

type leagueEntryPayload struct {
	Tier  string `json:"tier"`
	Rank  string `json:"rank"`
	PUUID string `json:"puuid"`
}

// ParseEntriesRoster parses a Diamond-and-below league entries page.
func ParseEntriesRoster(data []byte, page int) (*RosterPage, error) {
	var entries []leagueEntryPayload
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("league entries payload: %w", err)
	}

	roster := &RosterPage{Page: page}
	for i, entry := range entries {
		if entry.PUUID == "" {
			return nil, &fieldError{Context: fmt.Sprintf("entries[%d]", i), Field: "puuid"}
		}
		if roster.Tier == "" {
			roster.Tier = entry.Tier
			roster.Division = entry.Rank
		}
		roster.Players = append(roster.Players, entry.PUUID)
	}
	return roster, nil
}
