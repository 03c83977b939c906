// Package e2e runs the full document-to-answer flow over a two-corpus fixture set.
package e2e

import "fmt"

// Document is one fixture file. Text is a single line so that it survives
// extraction and chunking unchanged and becomes exactly one chunk.
type Document struct {
	Corpus string
	Name   string
	Text   string
}

// Corpus is the fixture set, grouped in corpus order.
type Corpus struct {
	Names     []string
	Documents []Document
}

// ByCorpus returns the documents of the named corpus.
func (c *Corpus) ByCorpus(name string) []Document {
	var out []Document
	for _, d := range c.Documents {
		if d.Corpus == name {
			out = append(out, d)
		}
	}
	return out
}

// BuildCorpus returns fixtures for a library-reference corpus and a course corpus.
// Texts are unique and contain no XML-special characters.
func BuildCorpus() *Corpus {
	corpora := []struct {
		name  string
		texts []string
	}{
		{"sklearn", []string{
			"Estimators expose fit to learn from data and predict to label new samples.",
			"A Pipeline chains transformers and ends with a final estimator.",
			"GridSearchCV evaluates every parameter combination with cross validation.",
			"StandardScaler removes the mean and scales features to unit variance.",
			"RandomForestClassifier averages many decision trees trained on bootstrap samples.",
			"KMeans partitions samples into clusters by minimizing inertia.",
			"train_test_split holds out a fraction of the data for evaluation.",
			"PCA projects data onto the directions of largest variance.",
			"LogisticRegression supports l1 and l2 penalties for regularization.",
			"ColumnTransformer applies different preprocessing to different columns.",
			"cross_val_score returns one score per fold.",
			"OneHotEncoder turns categorical features into binary indicator columns.",
		}},
		{"hf", []string{
			"A tokenizer converts raw text into input ids and an attention mask.",
			"The pipeline function wraps preprocessing, a model and postprocessing.",
			"AutoModel loads pretrained weights from a checkpoint name.",
			"The Trainer class handles the training loop and evaluation.",
			"Datasets are memory mapped Arrow tables that load lazily.",
			"Fine tuning adapts a pretrained model to a downstream task.",
			"Padding and truncation make every sequence in a batch the same length.",
			"push_to_hub uploads a model and its tokenizer to the Hub.",
			"Data collators build batches from lists of dataset elements.",
			"Sequence classification heads map the pooled output to labels.",
		}},
	}

	c := &Corpus{}
	for _, corpus := range corpora {
		c.Names = append(c.Names, corpus.name)
		for i, text := range corpus.texts {
			c.Documents = append(c.Documents, Document{
				Corpus: corpus.name,
				Name:   fmt.Sprintf("%s-%02d", corpus.name, i+1),
				Text:   text,
			})
		}
	}
	return c
}
