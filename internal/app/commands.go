package app

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/plumefeed/plume/internal/api"
	"github.com/plumefeed/plume/internal/feed"
	"github.com/plumefeed/plume/internal/search"
)

func commands() []*cli.Command {
	return []*cli.Command{
		loginCommand(),
		signupCommand(),
		logoutCommand(),
		whoamiCommand(),
		updateProfileCommand(),
		feedCommand(),
		postCommand(),
		viewCommand(),
		commentCommand(),
		deleteCommand(),
		likeCommand(),
		likeUserCommand(),
		followCommand(),
		followersCommand(),
		searchCommand(),
		statsCommand(),
	}
}

// credential policy lives here, at the caller: the session store performs no
// checks of its own.
func validateSignIn(email, password string) error {
	return validation.Errors{
		"email":    validation.Validate(email, validation.Required, is.Email),
		"password": validation.Validate(password, validation.Required),
	}.Filter()
}

func validateSignUp(name, email, password string) error {
	return validation.Errors{
		"name":     validation.Validate(name, validation.Required),
		"email":    validation.Validate(email, validation.Required, is.Email),
		"password": validation.Validate(password, validation.Required, validation.Length(8, 0)),
	}.Filter()
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Sign in and persist the session",
		ArgsUsage: "<email> <password>",
		Action: action(false, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			email, password := cmd.Args().Get(0), cmd.Args().Get(1)
			if err := validateSignIn(email, password); err != nil {
				return fmt.Errorf("%w: %v", api.ErrValidation, err)
			}
			if err := deps.Session.SignIn(ctx, email, password); err != nil {
				if errors.Is(err, api.ErrCredentialsInvalid) {
					return fmt.Errorf("login rejected: check your email and password")
				}
				return err
			}
			user, _, _ := deps.Session.Current()
			fmt.Printf("signed in as %s <%s>\n", user.Name, user.Email)
			return nil
		}),
	}
}

func signupCommand() *cli.Command {
	return &cli.Command{
		Name:      "signup",
		Usage:     "Create an account and start its session",
		ArgsUsage: "<name> <email> <password>",
		Action: action(false, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			name, email, password := cmd.Args().Get(0), cmd.Args().Get(1), cmd.Args().Get(2)
			if err := validateSignUp(name, email, password); err != nil {
				return fmt.Errorf("%w: %v", api.ErrValidation, err)
			}
			if err := deps.Session.SignUp(ctx, name, email, password); err != nil {
				if errors.Is(err, api.ErrCredentialsInvalid) {
					return fmt.Errorf("signup rejected: the account may already exist")
				}
				return err
			}
			user, _, _ := deps.Session.Current()
			fmt.Printf("welcome, %s <%s>\n", user.Name, user.Email)
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Clear the local session and notify the service",
		Action: action(false, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			deps.Session.SignOut(ctx)
			fmt.Println("signed out")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the current identity",
		Action: action(true, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			user, _, _ := deps.Session.Current()
			printUserDetail(user)
			return nil
		}),
	}
}

func updateProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "update-profile",
		Usage: "Change the signed-in user's name and email",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "New display name"},
			&cli.StringFlag{Name: "email", Usage: "New email address"},
		},
		Action: action(true, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			current, _, _ := deps.Session.Current()
			name, email := cmd.String("name"), cmd.String("email")
			if name == "" {
				name = current.Name
			}
			if email == "" {
				email = current.Email
			}
			if err := validation.Validate(email, validation.Required, is.Email); err != nil {
				return fmt.Errorf("%w: email: %v", api.ErrValidation, err)
			}
			if err := deps.Session.UpdateProfile(ctx, name, email); err != nil {
				return err
			}
			user, _, _ := deps.Session.Current()
			fmt.Printf("profile updated: %s <%s>\n", user.Name, user.Email)
			return nil
		}),
	}
}

func feedCommand() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Show the global feed, or one user's posts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "Show posts owned by this user id"},
		},
		Action: action(false, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			var err error
			if owner := cmd.String("user"); owner != "" {
				err = deps.Coordinator.LoadUserPosts(ctx, owner)
			} else {
				err = deps.Coordinator.LoadFeed(ctx)
			}
			if err != nil {
				return err
			}
			viewer, _, _ := deps.Session.Current()
			printPosts(deps.Coordinator.Posts().Snapshot(), viewer.ID)
			return nil
		}),
	}
}

func postCommand() *cli.Command {
	return &cli.Command{
		Name:  "post",
		Usage: "Create a post",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Post title"},
			&cli.StringFlag{Name: "content", Usage: "Post body"},
			&cli.StringSliceFlag{Name: "tag", Usage: "Tag label (repeatable)"},
			&cli.StringSliceFlag{Name: "media", Usage: "Media file or URI (repeatable)"},
		},
		Action: action(true, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			created, err := deps.Coordinator.CreatePost(ctx, feed.Draft{
				Title:      cmd.String("title"),
				Content:    cmd.String("content"),
				TagLabels:  cmd.StringSlice("tag"),
				MediaPaths: cmd.StringSlice("media"),
			})
			if err != nil {
				if errors.Is(err, api.ErrValidation) {
					return err
				}
				return fmt.Errorf("post not created, draft kept: %w", err)
			}
			fmt.Printf("created post %s\n", created.ID)
			return nil
		}),
	}
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Show one post with its comments",
		ArgsUsage: "<postID>",
		Action: action(false, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			postID := cmd.Args().Get(0)
			if postID == "" {
				return fmt.Errorf("%w: post id is required", api.ErrValidation)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return deps.Coordinator.LoadPost(gctx, postID) })
			g.Go(func() error { return deps.Coordinator.LoadComments(gctx, postID) })
			if err := g.Wait(); err != nil {
				return err
			}

			deps.Views.Record(postID)

			viewer, _, _ := deps.Session.Current()
			printPosts(deps.Coordinator.Posts().Snapshot(), viewer.ID)
			printComments(deps.Coordinator.Comments().Snapshot())
			return nil
		}),
	}
}

func commentCommand() *cli.Command {
	return &cli.Command{
		Name:      "comment",
		Usage:     "Comment on a post",
		ArgsUsage: "<postID> <content>",
		Action: action(true, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			postID, content := cmd.Args().Get(0), cmd.Args().Get(1)
			created, err := deps.Coordinator.AddComment(ctx, postID, content)
			if err != nil {
				if errors.Is(err, api.ErrValidation) {
					return err
				}
				return fmt.Errorf("comment not posted, input kept: %w", err)
			}
			fmt.Printf("comment %s added\n", created.ID)
			return nil
		}),
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete one of your posts",
		ArgsUsage: "<postID>",
		Action: action(true, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			postID := cmd.Args().Get(0)
			if postID == "" {
				return fmt.Errorf("%w: post id is required", api.ErrValidation)
			}
			if err := deps.Coordinator.DeletePost(ctx, postID); err != nil {
				return err
			}
			fmt.Printf("deleted post %s\n", postID)
			return nil
		}),
	}
}

// runToggle reports the settled outcome of a toggle so the user knows
// whether their local impression of the state still holds.
func runToggle(name string, err error) error {
	switch {
	case err == nil:
		fmt.Printf("%s toggled\n", name)
		return nil
	case errors.Is(err, feed.ErrToggleInFlight):
		fmt.Printf("%s already in progress, ignored\n", name)
		return nil
	default:
		return fmt.Errorf("%s failed, state unchanged: %w", name, err)
	}
}

func likeCommand() *cli.Command {
	return &cli.Command{
		Name:      "like",
		Usage:     "Toggle your like on a post",
		ArgsUsage: "<postID>",
		Action: action(true, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			return runToggle("like", deps.Coordinator.ToggleLikePost(ctx, cmd.Args().Get(0)))
		}),
	}
}

func likeUserCommand() *cli.Command {
	return &cli.Command{
		Name:      "like-user",
		Usage:     "Toggle your like on a profile",
		ArgsUsage: "<userID>",
		Action: action(true, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			return runToggle("like", deps.Coordinator.ToggleLikeUser(ctx, cmd.Args().Get(0)))
		}),
	}
}

func followCommand() *cli.Command {
	return &cli.Command{
		Name:      "follow",
		Usage:     "Toggle your follow on a profile",
		ArgsUsage: "<userID>",
		Action: action(true, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			return runToggle("follow", deps.Coordinator.ToggleFollow(ctx, cmd.Args().Get(0)))
		}),
	}
}

func followersCommand() *cli.Command {
	return &cli.Command{
		Name:      "followers",
		Usage:     "List the followers of a profile",
		ArgsUsage: "<userID>",
		Action: action(false, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			followers, err := deps.Coordinator.FollowersOf(ctx, cmd.Args().Get(0))
			if err != nil {
				return err
			}
			printUsers(followers)
			return nil
		}),
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search posts or users",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "users", Usage: "Search users instead of posts"},
		},
		Action: action(false, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			mode := search.ModePosts
			if cmd.Bool("users") {
				mode = search.ModeUsers
			}
			if err := deps.Search.SetMode(ctx, mode); err != nil {
				return err
			}
			if err := deps.Search.SetQuery(ctx, cmd.Args().Get(0)); err != nil {
				return err
			}
			if !deps.Search.HasQuery() {
				fmt.Println("nothing to search for")
				return nil
			}
			viewer, _, _ := deps.Session.Current()
			if mode == search.ModeUsers {
				printUsers(deps.Search.Users())
			} else {
				printPosts(deps.Search.Posts(), viewer.ID)
			}
			return nil
		}),
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show the posting-activity histogram",
		Action: action(false, func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error {
			stats, err := deps.Coordinator.Stats(ctx)
			if err != nil {
				return err
			}
			printStats(stats)
			return nil
		}),
	}
}
