package mongodb

const (
	UsersCollection         = "auth_users"
	RolesCollection         = "auth_roles"
	RefreshTokensCollection = "auth_refresh_tokens"
)
