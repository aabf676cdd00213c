// Package httpapp provides the HTTP server for InsightSphere.
//
//	@title						InsightSphere API
//	@version					1.0
//	@description				Backend for the InsightSphere blogging platform: accounts, posts, comments and the newsletter.
//	@description
//	@description				## Authentication
//	@description
//	@description				```
//	@description				POST /api/signup  ->  POST /api/verify-email  ->  POST /api/login
//	@description				```
//	@description
//	@description				Login sets an httpOnly `token` cookie. Clients that cannot keep cookies may send the
//	@description				returned token as `Authorization: Bearer TOKEN` instead.
//	@description
//	@description				## Roles
//	@description				| Role | Can |
//	@description				|------|-----|
//	@description				| admin | manage every post, comment, user and subscriber |
//	@description				| author | write posts, moderate comments on own posts except admin comments |
//	@description				| reader | read and comment |
//	@description
//	@description				## Views
//	@description				Opening a post counts one view per reader (user, or IP when anonymous) every 30 minutes.
//
//	@contact.name				InsightSphere
//	@license.name				MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	CookieAuth
//	@in							cookie
//	@name						token
//	@description				Session cookie set by /api/login
//
//	@tag.name					Auth
//	@tag.description			Signup, email verification, sessions and password resets.
//
//	@tag.name					Blogs
//	@tag.description			Published posts and post creation.
//
//	@tag.name					Comments
//	@tag.description			Discussion on posts. Each comment remembers the role of its writer.
//
//	@tag.name					Author
//	@tag.description			Author dashboards: own posts and moderation of their comments.
//
//	@tag.name					Admin
//	@tag.description			Site administration. Requires the admin role.
//
//	@tag.name					Newsletter
//	@tag.description			Email subscriptions notified when a post is published.
package httpapp
