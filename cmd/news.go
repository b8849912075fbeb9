package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"materialhub/internal/news"
	"materialhub/internal/rest"
	"materialhub/internal/screens"
)

const userAgent = "materialhub/1.0"

func newsCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.IntFlag{Name: "page", Value: 1, Usage: "first page to show"},
		&cli.IntFlag{Name: "more", Value: 0, Usage: "number of further pages to append"},
	}
	return &cli.Command{
		Name:  "news",
		Usage: "Read top headlines or search articles.",
		Subcommands: []*cli.Command{
			{
				Name:  "headlines",
				Usage: "Show top headlines.",
				Flags: flags,
				Action: func(c *cli.Context) error {
					return showNews(c, "")
				},
			},
			{
				Name:      "search",
				Usage:     "Search articles, newest first. A blank query shows top headlines.",
				ArgsUsage: "QUERY",
				Flags:     flags,
				Action: func(c *cli.Context) error {
					return showNews(c, strings.Join(c.Args().Slice(), " "))
				},
			},
		},
	}
}

func showNews(c *cli.Context, query string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.CheckNews(); err != nil {
		return err
	}

	client := news.NewClient(logger, rest.NewHTTPClient(cfg.HTTPTimeout, userAgent), cfg.NewsBaseURL, cfg.NewsAPIKey)
	screen := screens.NewNewsScreen(c.Context, logger, news.NewRepository(logger, client), cfg.NewsCountry, news.DefaultPageSize)
	defer screen.Close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	states := screen.Subscribe(ctx)

	if page := c.Int("page"); page > 1 {
		screen.LoadTo(query, page)
	} else {
		screen.Search(query)
	}
	first, err := settle(ctx, states)
	if err != nil {
		return err
	}
	if _, err := result(first); err != nil {
		return err
	}

	for i := 0; i < c.Int("more"); i++ {
		screen.LoadMore()
		screen.Wait()
	}

	feed, err := result(screen.State())
	if err != nil {
		return err
	}
	for _, article := range feed.Articles {
		fmt.Printf("%s\n  %s | %s\n  %s\n", article.Title, article.Source.Name, article.PublishedAt, article.URL)
	}
	if feed.HasMore {
		fmt.Printf("-- page %d, more available\n", feed.Page)
	} else {
		fmt.Printf("-- page %d, end of results\n", feed.Page)
	}
	return nil
}
