package app

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/plumefeed/plume/internal/models"
)

func printPosts(posts []models.Post, viewerID string) {
	if len(posts) == 0 {
		fmt.Println("no posts")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tLIKES\tCOMMENTS\tTAGS\tLIKED")
	for _, p := range posts {
		author := p.UserID
		if p.User != nil && p.User.Name != "" {
			author = p.User.Name
		}
		liked := ""
		if viewerID != "" && p.LikedBy(viewerID) {
			liked = "yes"
		}
		labels := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			labels = append(labels, t.Label)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			p.ID, p.Title, author, p.LikesCount, p.CommentsCount, strings.Join(labels, ","), liked)
	}
	w.Flush()
}

func printUsers(users []models.User) {
	if len(users) == 0 {
		fmt.Println("no users")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPOSTS\tFOLLOWERS\tLIKES")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			u.ID, u.Name, u.Email, u.PostsCount, u.FollowersCount, u.LikesCount)
	}
	w.Flush()
}

func printUserDetail(u models.User) {
	fmt.Printf("%s <%s>\n", u.Name, u.Email)
	fmt.Printf("id: %s\n", u.ID)
	fmt.Printf("posts: %d  followers: %d  likes: %d\n", u.PostsCount, u.FollowersCount, u.LikesCount)
}

func printComments(comments []models.Comment) {
	if len(comments) == 0 {
		fmt.Println("no comments")
		return
	}
	for _, c := range comments {
		author := c.UserID
		if c.User != nil && c.User.Name != "" {
			author = c.User.Name
		}
		fmt.Printf("[%s] %s: %s\n", c.ID, author, c.Content)
	}
}

func printStats(stats []models.Stat) {
	if len(stats) == 0 {
		fmt.Println("no activity")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tPOSTS")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\n", s.Day, s.Count)
	}
	w.Flush()
}
