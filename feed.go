package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/beevik/etree"
)

// HandleFeed renders the caller's pictures as an Atom document. Entries link
// to the public image paths, so any feed reader can fetch the bytes.
func (s *APIServer) HandleFeed(userID int64, w http.ResponseWriter, r *http.Request) error {
	user, err := s.db.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return statusErr(http.StatusNotFound, "user not found")
		}

		return err
	}

	images, err := s.db.GetUserImages(r.Context(), userID)
	if err != nil {
		return err
	}

	doc := buildFeed(user, images)

	w.Header().Set("Content-Type", "application/atom+xml; charset=UTF-8")
	_, err = doc.WriteTo(w)

	return err
}

func buildFeed(user User, images []Image) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	feed := doc.CreateElement("feed")
	feed.CreateAttr("xmlns", "http://www.w3.org/2005/Atom")
	feed.CreateElement("title").SetText(fmt.Sprintf("Pictures of %s", user.FullName))
	feed.CreateElement("id").SetText(fmt.Sprintf("urn:photo-albumapp:user:%d", user.ID))

	updated := time.Now().UTC()
	if len(images) > 0 {
		updated = images[0].CreatedAt
	}
	feed.CreateElement("updated").SetText(updated.Format(time.RFC3339))

	for _, img := range images {
		entry := feed.CreateElement("entry")
		entry.CreateElement("id").SetText(fmt.Sprintf("urn:photo-albumapp:image:%d", img.ID))
		entry.CreateElement("title").SetText(img.FileName)
		entry.CreateElement("updated").SetText(img.CreatedAt.Format(time.RFC3339))

		link := entry.CreateElement("link")
		link.CreateAttr("rel", "enclosure")
		link.CreateAttr("href", "/images/"+img.StorageKey)
	}

	doc.Indent(2)

	return doc
}
