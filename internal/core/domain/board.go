package domain

// Board is a collection of pieces owned by a user. Deleting the owner
// deletes the board.
type Board struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Link   string `json:"link"`
	UserID int64  `json:"user_id"`
}

// Piece is an item placed on a board. Deleting the board deletes the piece.
type Piece struct {
	ID      int64  `json:"id"`
	Image   string `json:"image"`
	Content string `json:"content"`
	Size    string `json:"size"`
	BoardID int64  `json:"board_id"`
}
