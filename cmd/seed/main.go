package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/insightsphere/insightsphere/internal/client"
	"github.com/insightsphere/insightsphere/internal/log"
	"github.com/insightsphere/insightsphere/internal/model"
)

var posts = []struct {
	title    string
	category string
	role     model.Role
}{
	{"Welcome to InsightSphere", "Announcements", model.RoleAdmin},
	{"Writing Headlines People Actually Click", "Writing", model.RoleAuthor},
	{"A Gentle Introduction to Rate Limiting", "Engineering", model.RoleAuthor},
	{"Why We Count Views the Way We Do", "Engineering", model.RoleAdmin},
	{"Five Habits of Consistent Bloggers", "Writing", model.RoleAuthor},
	{"Moderating Comments Without Losing Your Mind", "Community", model.RoleAdmin},
}

var comments = []string{
	"Great post! Bookmarking this one.",
	"I disagree with the second point, but the rest is spot on.",
	"Would love a follow-up with more examples.",
	"This is exactly what I needed this week.",
	"Clear and to the point. Thanks for writing it.",
	"Has anyone tried this on a larger site?",
}

const body = `<p>This is seeded content for local development. It is long enough to
give the read time estimate something to chew on, and short enough to skim.</p>
<p>Edit or delete it from the admin dashboard once real posts exist.</p>`

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "InsightSphere server URL")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Error.Fatalf("admin credentials required: set --email/--password or ADMIN_EMAIL/ADMIN_PASSWORD")
	}

	ctx := context.Background()
	log.Info.Printf("Seeding %s...", *baseURL)

	admin := client.New(*baseURL)
	if _, err := admin.Login(ctx, *email, *password); err != nil {
		log.Error.Fatalf("admin login: %v", err)
	}

	var ids []int64
	for i, p := range posts {
		post, err := admin.CreatePost(ctx, client.PostInput{
			Title:       p.title,
			Description: "Seeded post about " + p.category + ".",
			Content:     body,
			Thumbnail:   fmt.Sprintf("https://picsum.photos/seed/insightsphere-%d/1280/720", i),
			Category:    p.category,
			AuthorRole:  p.role,
			Published:   i != len(posts)-1,
		})
		if err != nil {
			log.Warn.Printf("failed to create %q: %v", p.title, err)
			continue
		}
		ids = append(ids, post.ID)
		log.Info.Printf("created post #%d: %s", post.ID, p.title)
	}

	for _, id := range ids {
		for i := rand.Intn(3) + 1; i > 0; i-- {
			comment, err := admin.AddComment(ctx, id, comments[rand.Intn(len(comments))])
			if err != nil {
				log.Warn.Printf("failed to comment on #%d: %v", id, err)
				continue
			}
			log.Info.Printf("comment #%d on post #%d", comment.ID, id)
		}
	}

	// Each visitor reads every post twice; only the first read counts.
	for v := 1; v <= 3; v++ {
		visitor := client.New(*baseURL)
		visitor.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", v))
		for _, id := range ids {
			for i := 0; i < 2; i++ {
				if _, _, err := visitor.GetPost(ctx, id); err != nil {
					// the unpublished draft is expected to 404
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
		}
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Posts: %d\n", len(ids))
	listed, err := client.New(*baseURL).ListPosts(ctx)
	if err != nil {
		log.Error.Fatalf("list posts: %v", err)
	}
	for _, p := range listed {
		fmt.Printf("  #%d %-48s %d views\n", p.ID, p.Title, p.Views)
	}
	fmt.Println("\nView at:", *baseURL)
}
