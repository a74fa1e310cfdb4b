package s3

import "testing"

func TestObjectURL(t *testing.T) {
	c := Config{Region: "eu-west-1", Bucket: "study"}
	if got, want := c.ObjectURL("docs/a.pdf"), "https://study.s3.eu-west-1.amazonaws.com/docs/a.pdf"; got != want {
		t.Fatalf("aws url: want=%q got=%q", want, got)
	}
	c.Endpoint = "http://minio:9000"
	if got, want := c.ObjectURL("docs/a.pdf"), "http://minio:9000/study/docs/a.pdf"; got != want {
		t.Fatalf("endpoint url: want=%q got=%q", want, got)
	}
}
