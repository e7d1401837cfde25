package selector

import "time"

type Pet struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	NickName string `restql:"nick_name" json:"nickName"`
}

type Author struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	NickName     string   `json:"nick_name"`
	Pet          *Pet     `json:"pet"`
	PhoneNumbers []string `json:"phoneNumbers"`
	Books        []string `json:"books"`
}

type Comment struct {
	ID      int64      `json:"id"`
	Text    string     `json:"text"`
	Author  *Author    `json:"author"`
	Replies []*Comment `json:"replies"`
}

type Post struct {
	ID            int64      `json:"id"`
	Text          string     `json:"text"`
	DatePublished time.Time  `json:"datePublished"`
	Author        *Author    `json:"author"`
	Comments      []*Comment `json:"comments"`
}

func newAuthor(id int64, name string) *Author {
	return &Author{
		ID:           id,
		Name:         name,
		Email:        name + "@example.com",
		NickName:     name + "-nick",
		Pet:          &Pet{Name: name + "'s cat", Age: int(id % 15), NickName: "kitty"},
		PhoneNumbers: []string{"555-0100", "555-0101"},
		Books:        []string{"Dune", "Emma"},
	}
}

func newPost() *Post {
	reply := func(id int64) *Comment {
		return &Comment{ID: id, Text: "reply", Author: newAuthor(id*10, "replier")}
	}
	return &Post{
		ID:            7,
		Text:          "hi",
		DatePublished: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Author:        newAuthor(3, "ann"),
		Comments: []*Comment{
			{ID: 1, Text: "first", Author: newAuthor(10, "bob"), Replies: []*Comment{reply(100), reply(101)}},
			{ID: 2, Text: "second", Author: newAuthor(11, "cid"), Replies: []*Comment{reply(200)}},
		},
	}
}
