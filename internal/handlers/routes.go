package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Directory: deps.Directory, Limiter: deps.AuthLimiter}
	profile := ProfileHandler{Users: deps.Users, Sessions: deps.Sessions, Directory: deps.Directory, Avatars: deps.Avatars}
	catalog := CatalogHandler{Catalog: deps.Catalog, Sessions: deps.Sessions}
	watch := WatchHandler{Sessions: deps.Sessions, Directory: deps.Directory, Memberships: deps.Memberships}
	socialGraph := SocialHandler{Graph: deps.Social, Sessions: deps.Sessions}
	posts := PostHandler{Feed: deps.Feed, Sessions: deps.Sessions}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", auth.Logout)
	mux.HandleFunc("/api/v1/profile", profile.Me)
	mux.HandleFunc("/api/v1/profile/avatar", profile.UploadAvatar)
	mux.HandleFunc("/api/v1/users/search", profile.Search)
	mux.HandleFunc("/api/v1/users/profile", profile.PublicProfile)
	mux.HandleFunc("/api/v1/users/follow", socialGraph.Follow)
	mux.HandleFunc("/api/v1/users/unfollow", socialGraph.Unfollow)
	mux.HandleFunc("/api/v1/users/following", socialGraph.Status)
	mux.HandleFunc("/api/v1/users/counts", socialGraph.Counts)
	mux.HandleFunc("/api/v1/users/follow-list", socialGraph.FollowList)
	mux.HandleFunc("/api/v1/catalog/search", catalog.Search)
	mux.HandleFunc("/api/v1/catalog/detail", catalog.Detail)
	mux.HandleFunc("/api/v1/watchlists", watch.List)
	mux.HandleFunc("/api/v1/watchlists/toggle", watch.Toggle)
	mux.HandleFunc("/api/v1/posts", posts.Posts)
	mux.HandleFunc("/api/v1/posts/by-author", posts.ByAuthor)
	mux.HandleFunc("/api/v1/posts/detail", posts.Detail)
	mux.HandleFunc("/api/v1/posts/like", posts.Like)
	mux.HandleFunc("/api/v1/posts/comments", posts.Comments)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users       UserStore
	Sessions    SessionManager
	Directory   SessionDirectory
	Memberships MembershipReader
	Catalog     CatalogProvider
	Social      SocialGraph
	Feed        FeedService
	Avatars     AvatarStorage
	AuthLimiter RateLimiter
}
