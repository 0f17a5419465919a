package handler

import "github.com/google/uuid"

// ResolveContactRequest is an inbound identity observation
type ResolveContactRequest struct {
	RawIdentifier string `json:"raw_identifier" binding:"required,max=256,jid"`
	DisplayName   string `json:"display_name" binding:"max=200"`
	ProfilePicURL string `json:"profile_pic_url" binding:"omitempty,max=2048,url"`
}

// MergeContactsRequest asks for loser to be consolidated into winner
type MergeContactsRequest struct {
	WinnerID string `json:"winner_id" binding:"required,uuid"`
	LoserID  string `json:"loser_id" binding:"required,uuid,nefield=WinnerID"`
}

// IDs parses both contact ids
func (r MergeContactsRequest) IDs() (winnerID, loserID uuid.UUID, err error) {
	if winnerID, err = uuid.Parse(r.WinnerID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if loserID, err = uuid.Parse(r.LoserID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return winnerID, loserID, nil
}
