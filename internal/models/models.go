package models

import "time"

// User represents an account within the NextScene platform, including the
// public profile fields and the denormalized social counters.
type User struct {
	ID             string
	Email          string
	Password       string
	Username       string
	Name           string
	Surname        string
	PhoneNumber    string
	Bio            string
	Role           string
	AvatarURL      string
	FollowerCount  int64
	FollowingCount int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ContentKind distinguishes the independent watch-state namespaces.
type ContentKind string

const (
	KindMovie  ContentKind = "movie"
	KindSeries ContentKind = "series"
	KindItem   ContentKind = "item"
)

// ListKind names one of the three membership sets tracked per content kind.
type ListKind string

const (
	ListFavorite  ListKind = "favorite"
	ListWatched   ListKind = "watched"
	ListWatchlist ListKind = "watchlist"
)

// ListKinds enumerates every membership set a registry maintains.
var ListKinds = []ListKind{ListFavorite, ListWatched, ListWatchlist}

// CatalogItem is a search result from the external catalog API.
type CatalogItem struct {
	ID     string
	Title  string
	Year   string
	Kind   string
	Poster string
}

// CatalogRating is a single source/value rating pair from the catalog API.
type CatalogRating struct {
	Source string
	Value  string
}

// CatalogDetail is the extended record for a single catalog item. The
// upstream provider substitutes "N/A" for missing fields; the client
// normalizes those to empty strings before this struct is populated.
type CatalogDetail struct {
	ID         string
	Title      string
	Year       string
	Rated      string
	Released   string
	Runtime    string
	Genre      string
	Director   string
	Writer     string
	Actors     string
	Plot       string
	Language   string
	Country    string
	Awards     string
	Poster     string
	Ratings    []CatalogRating
	Metascore  string
	ImdbRating string
	ImdbVotes  string
	Kind       string
	BoxOffice  string
}

// Post is a user-authored review bound to one catalog item.
type Post struct {
	ID           string
	AuthorID     string
	MediaID      string
	MediaTitle   string
	MediaPoster  string
	MediaKind    string
	Title        string
	ReviewText   string
	Rating       int
	LikeCount    int64
	LikedBy      []string
	CommentCount int64
	CreatedAt    time.Time
}

// Comment belongs to a post and is append-only from the client's perspective.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Text      string
	CreatedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
